package scaffold

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"

	"github.com/artpar/appforge/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// EntryShellPath is the path of the entry shell inside the app directory.
	EntryShellPath = "app/layout.tsx"

	// ManifestPath is the path of the manifest inside the app directory.
	ManifestPath = "appforge.yaml"

	// DefaultStylesheet is the stylesheet the entry shell imports.
	DefaultStylesheet = "./globals.css"

	fileMode = "0644"
)

// =============================================================================
// Types
// =============================================================================

// File is one emitted file, relative to the app directory.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
	Mode    string `json:"mode"`
}

// FileSet is the in-memory scaffold of one app.
type FileSet struct {
	// Root is the directory name of the app, always the record slug.
	Root string `json:"root"`

	// Files are sorted by path.
	Files []File `json:"files"`

	// Assets are shared, record-independent references the entry shell
	// depends on. They are supplied by the external template unmodified.
	Assets []string `json:"assets"`
}

// File returns the file at path, if present.
func (fs FileSet) File(path string) (File, bool) {
	for _, f := range fs.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Digest returns a hex SHA-256 over root, paths and contents.
func (fs FileSet) Digest() string {
	h := sha256.New()
	h.Write([]byte(fs.Root))
	h.Write([]byte{0})
	for _, f := range fs.Files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	for _, a := range fs.Assets {
		h.Write([]byte(a))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Options configures Emit.
type Options struct {
	// Stylesheet is the shared stylesheet reference. Defaults to DefaultStylesheet.
	Stylesheet string
}

// Manifest is the record summary written to ManifestPath.
type Manifest struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Sequence    int64  `yaml:"sequence"`
}

// =============================================================================
// Entry Shell Template
// =============================================================================

var entryShell = template.Must(template.New("layout").Funcs(template.FuncMap{
	"js": jsString,
}).Parse(`import type { Metadata } from "next";
import {{ js .Stylesheet }};

export const metadata: Metadata = {
  title: {{ js .Title }},
  description: {{ js .Description }},
};

export default function RootLayout({
  children,
}: Readonly<{
  children: React.ReactNode;
}>) {
  return (
    <html lang="en">
      <body>{children}</body>
    </html>
  );
}
`))

// jsString renders s as a double-quoted literal that is valid in both JSON
// and TypeScript. encoding/json escapes <, > and & as \u sequences, so the
// value cannot close a tag or a string.
func jsString(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// =============================================================================
// Emit
// =============================================================================

// Emit renders the file set for a record.
// Returns an error if the slug is not a safe directory name.
func Emit(rec domain.AppRecord, opts Options) (FileSet, error) {
	if err := domain.ValidateSlug(rec.Slug); err != nil {
		return FileSet{}, fmt.Errorf("emit %q: %w", rec.Slug, err)
	}
	if opts.Stylesheet == "" {
		opts.Stylesheet = DefaultStylesheet
	}

	var shell bytes.Buffer
	err := entryShell.Execute(&shell, struct {
		Stylesheet  string
		Title       string
		Description string
	}{opts.Stylesheet, rec.Title, rec.Description})
	if err != nil {
		return FileSet{}, fmt.Errorf("render entry shell: %w", err)
	}

	manifest, err := yaml.Marshal(Manifest{
		Slug:        rec.Slug,
		Title:       rec.Title,
		Description: rec.Description,
		Sequence:    rec.Sequence,
	})
	if err != nil {
		return FileSet{}, fmt.Errorf("render manifest: %w", err)
	}

	files := []File{
		{Path: EntryShellPath, Content: shell.Bytes(), Mode: fileMode},
		{Path: ManifestPath, Content: manifest, Mode: fileMode},
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return FileSet{
		Root:   rec.Slug,
		Files:  files,
		Assets: []string{opts.Stylesheet},
	}, nil
}

// ParseManifest decodes a manifest produced by Emit.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
