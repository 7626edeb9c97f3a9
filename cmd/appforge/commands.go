package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/artpar/appforge/internal/shell/registration"
	"github.com/artpar/appforge/internal/shell/scaffold"
	"github.com/artpar/appforge/internal/shell/store"
	"github.com/spf13/pflag"
)

// =============================================================================
// Command Environment
// =============================================================================

// env is what every subcommand gets after flag parsing and config loading.
type env struct {
	cfg     *Config
	logger  *slog.Logger
	store   store.Store
	service *registration.Service
	stdout  io.Writer
	stderr  io.Writer
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("database close error", "error", err)
		}
	}
}

// newFlagSet returns a flag set carrying the flags shared by all commands.
func newFlagSet(name string, stderr io.Writer) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	fs.String("driver", "", "Registry storage: sqlite or memory")
	fs.String("dsn", "", "SQLite database path")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: json or text")
	return fs, configPath
}

// setup parses args, loads config and opens the registry.
// On failure it returns a non-zero exit code.
func setup(fs *pflag.FlagSet, configPath *string, args []string, stdout, stderr io.Writer) (*env, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ExitSuccess
		}
		return nil, ExitUsageError
	}

	cfg, err := LoadConfig(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return nil, ExitConfigError
	}

	logger := SetupLogger(cfg, stderr)

	s, err := OpenStore(cfg)
	if err != nil {
		logger.Error("failed to open registry", "error", err)
		return nil, ExitDatabaseError
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		store:   s,
		service: NewService(cfg, s, logger),
		stdout:  stdout,
		stderr:  stderr,
	}, ExitSuccess
}

// ensureParentDir creates the directory holding a SQLite file.
func ensureParentDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}
	return nil
}

// fail logs err and maps it to an exit code.
func (e *env) fail(op string, err error) int {
	e.logger.Error(op+" failed", "error", err)
	switch {
	case errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrTextBoundViolation),
		errors.Is(err, store.ErrInvalidData),
		errors.Is(err, store.ErrDuplicateSlug):
		return ExitValidationError
	case store.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitDatabaseError
	}
}

func (e *env) printJSON(v any) int {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		e.logger.Error("failed to encode output", "error", err)
		return ExitDatabaseError
	}
	return ExitSuccess
}

// =============================================================================
// serve
// =============================================================================

func runServe(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("serve", stderr)
	fs.String("host", "", "Listen host")
	fs.Int("port", 0, "Listen port")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsageError
	}

	cfg, err := LoadConfig(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg, stderr)
	logger.Info("starting appforge",
		"version", Version,
		"config", *configPath,
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		return reportServerError(logger, "failed to create server", err)
	}

	if err := server.Start(context.Background()); err != nil {
		return reportServerError(logger, "server error", err)
	}
	return ExitSuccess
}

func reportServerError(logger *slog.Logger, msg string, err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		logger.Error(msg,
			"error", sErr.Err,
			"operation", sErr.Op,
		)
		return sErr.ExitCode
	}
	logger.Error(msg, "error", err)
	return ExitConfigError
}

// =============================================================================
// register / preview
// =============================================================================

func runRegister(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("register", stderr)
	title := fs.String("title", "", "App title")
	description := fs.String("description", "", "App description")
	write := fs.Bool("write", false, "Also write the scaffold to the output directory")
	fs.String("output-dir", "", "Scaffold output directory")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	ctx := context.Background()
	rec, err := e.service.Register(ctx, domain.AppRequest{Title: *title, Description: *description})
	if err != nil {
		return e.fail("register", err)
	}

	if *write {
		files, err := e.service.Emit(rec)
		if err != nil {
			return e.fail("scaffold", err)
		}
		if _, err := scaffold.NewWriter(e.cfg.Scaffold.OutputDir, e.logger).Write(files); err != nil {
			return e.fail("scaffold", err)
		}
	}

	return e.printJSON(rec)
}

func runPreview(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("preview", stderr)
	title := fs.String("title", "", "App title")
	description := fs.String("description", "", "App description")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	rec, err := e.service.Preview(context.Background(), domain.AppRequest{Title: *title, Description: *description})
	if err != nil {
		return e.fail("preview", err)
	}
	return e.printJSON(rec)
}

// =============================================================================
// list / deregister
// =============================================================================

func runList(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("list", stderr)
	limit := fs.Int("limit", 100, "Maximum number of apps")
	offset := fs.Int("offset", 0, "Number of apps to skip")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	apps, err := e.service.List(context.Background(), store.ListOptions{Limit: *limit, Offset: *offset})
	if err != nil {
		return e.fail("list", err)
	}
	return e.printJSON(apps)
}

func runDeregister(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("deregister", stderr)

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: appforge deregister <slug>")
		return ExitUsageError
	}
	if err := e.service.Deregister(context.Background(), fs.Arg(0)); err != nil {
		return e.fail("deregister", err)
	}
	return ExitSuccess
}

// =============================================================================
// scaffold
// =============================================================================

func runScaffold(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("scaffold", stderr)
	fs.String("output-dir", "", "Scaffold output directory")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: appforge scaffold <slug>")
		return ExitUsageError
	}

	files, err := e.service.Scaffold(context.Background(), fs.Arg(0))
	if err != nil {
		return e.fail("scaffold", err)
	}
	dir, err := scaffold.NewWriter(e.cfg.Scaffold.OutputDir, e.logger).Write(files)
	if err != nil {
		return e.fail("scaffold", err)
	}
	fmt.Fprintln(stdout, dir)
	return ExitSuccess
}

// =============================================================================
// export / import
// =============================================================================

func runExport(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("export", stderr)
	file := fs.String("file", "registry.yaml", "Snapshot file to write")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	snap, err := e.service.Export(context.Background())
	if err != nil {
		return e.fail("export", err)
	}
	if err := store.WriteSnapshotFile(*file, snap); err != nil {
		return e.fail("export", err)
	}
	e.logger.Info("registry exported", "file", *file, "apps", len(snap.Apps))
	return ExitSuccess
}

func runImport(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("import", stderr)
	file := fs.String("file", "registry.yaml", "Snapshot file to read")

	e, code := setup(fs, configPath, args, stdout, stderr)
	if e == nil {
		return code
	}
	defer e.Close()

	snap, err := store.ReadSnapshotFile(*file)
	if err != nil {
		return e.fail("import", err)
	}
	if err := e.service.Import(context.Background(), snap); err != nil {
		if errors.Is(err, domain.ErrRegistryCorruption) {
			e.logger.Error("snapshot file is corrupt", "file", *file, "error", err)
			return ExitDatabaseError
		}
		return e.fail("import", err)
	}
	return ExitSuccess
}
