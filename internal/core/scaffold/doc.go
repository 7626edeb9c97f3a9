// Package scaffold renders the file set of a generated app from its record.
//
// This package is part of the functional core: Emit performs no I/O and is
// deterministic, so emitting the same record twice yields byte-identical
// files. Writing a FileSet to disk is done by internal/shell/scaffold.
//
// # Files
//
//   - app/layout.tsx: the entry shell. Its only record-dependent content is
//     the title and description in the exported metadata block.
//   - appforge.yaml: a manifest with the record's slug, title, description
//     and sequence.
//
// The shared stylesheet is not emitted. The entry shell imports it and the
// FileSet lists it under Assets for the external template to supply.
package scaffold
