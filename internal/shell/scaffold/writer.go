// Package scaffold writes emitted file sets to disk.
package scaffold

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	corescaffold "github.com/artpar/appforge/internal/core/scaffold"
)

// ErrUnsafePath is returned when a file would land outside its app directory.
var ErrUnsafePath = errors.New("scaffold path escapes app directory")

// Writer materializes file sets under a base directory, one subdirectory per app.
type Writer struct {
	baseDir string
	logger  *slog.Logger
}

// NewWriter creates a writer rooted at baseDir.
func NewWriter(baseDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{baseDir: baseDir, logger: logger}
}

// AppDir returns the directory an app's files are written to.
func (w *Writer) AppDir(root string) string {
	return filepath.Join(w.baseDir, root)
}

// Write writes every file of fs under <baseDir>/<fs.Root>/ and returns the
// app directory. Existing files are overwritten; since emission is
// deterministic, rewriting an unchanged record leaves the tree unchanged.
func (w *Writer) Write(fs corescaffold.FileSet) (string, error) {
	appDir := w.AppDir(fs.Root)
	if err := checkWithin(w.baseDir, appDir); err != nil {
		return "", err
	}

	for _, f := range fs.Files {
		target := filepath.Join(appDir, filepath.FromSlash(f.Path))
		if err := checkWithin(appDir, target); err != nil {
			return "", err
		}

		mode, err := parseMode(f.Mode)
		if err != nil {
			return "", fmt.Errorf("file %s: %w", f.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, f.Content, mode); err != nil {
			return "", fmt.Errorf("write %s: %w", f.Path, err)
		}
	}

	w.logger.Info("scaffold written",
		"dir", appDir,
		"files", len(fs.Files),
		"digest", fs.Digest(),
	)
	return appDir, nil
}

func checkWithin(base, target string) error {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsafePath, target)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, target)
	}
	return nil
}

// parseMode parses an octal mode string, defaulting to 0644.
func parseMode(mode string) (os.FileMode, error) {
	if mode == "" {
		return 0o644, nil
	}
	m, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", mode, err)
	}
	return os.FileMode(m), nil
}
