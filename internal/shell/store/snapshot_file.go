package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Snapshot File
// =============================================================================

// SnapshotFileVersion is the current registry file format version.
const SnapshotFileVersion = 1

// SnapshotFile is the portable registry persistence format. Apps are kept in
// sequence order so listings and diffs are reproducible.
type SnapshotFile struct {
	Version      int                `yaml:"version"`
	LastSequence int64              `yaml:"last_sequence"`
	Apps         []domain.AppRecord `yaml:"apps"`
}

// Validate checks the file against the registry invariants: unique slugs,
// canonical slugs, unique positive sequences and bounded descriptions.
// Duplicate slugs are reported as domain.ErrRegistryCorruption.
func (f SnapshotFile) Validate(descriptionBudget int) error {
	if f.Version != SnapshotFileVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", ErrInvalidData, f.Version)
	}
	slugs := make(map[string]struct{}, len(f.Apps))
	seqs := make(map[int64]struct{}, len(f.Apps))
	for _, app := range f.Apps {
		if _, dup := slugs[app.Slug]; dup {
			return fmt.Errorf("%w: %q", domain.ErrRegistryCorruption, app.Slug)
		}
		slugs[app.Slug] = struct{}{}
		if _, dup := seqs[app.Sequence]; dup {
			return fmt.Errorf("%w: sequence %d used twice", ErrInvalidData, app.Sequence)
		}
		seqs[app.Sequence] = struct{}{}
		if err := domain.ValidateRecord(app, descriptionBudget); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}
	return nil
}

// Export captures the whole registry as a SnapshotFile.
func Export(ctx context.Context, s Store) (SnapshotFile, error) {
	var f SnapshotFile
	err := s.WithTx(ctx, func(tx Store) error {
		snap, err := tx.Snapshot(ctx)
		if err != nil {
			return err
		}
		apps, err := ListAll(ctx, tx)
		if err != nil {
			return err
		}
		f = SnapshotFile{
			Version:      SnapshotFileVersion,
			LastSequence: snap.LastSequence,
			Apps:         apps,
		}
		return nil
	})
	return f, err
}

// Import loads every app of f into s in sequence order, inside one
// transaction. The target must not already hold any of the slugs.
func Import(ctx context.Context, s Store, f SnapshotFile, descriptionBudget int) error {
	if err := f.Validate(descriptionBudget); err != nil {
		return err
	}

	apps := make([]domain.AppRecord, len(f.Apps))
	copy(apps, f.Apps)
	sort.Slice(apps, func(i, j int) bool { return apps[i].Sequence < apps[j].Sequence })

	return s.WithTx(ctx, func(tx Store) error {
		for _, app := range apps {
			if app.ReferenceID == "" {
				app.ReferenceID = domain.NewReferenceID()
			}
			if err := tx.Insert(ctx, app); err != nil {
				return err
			}
		}
		return tx.ReserveSequence(ctx, f.LastSequence)
	})
}

// WriteSnapshotFile writes f to path atomically while holding an exclusive
// lock on path + ".lock".
func WriteSnapshotFile(path string, f SnapshotFile) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock snapshot %s: %w", path, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// ReadSnapshotFile reads a snapshot written by WriteSnapshotFile while
// holding a shared lock on path + ".lock".
func ReadSnapshotFile(path string) (SnapshotFile, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return SnapshotFile{}, fmt.Errorf("lock snapshot %s: %w", path, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return SnapshotFile{}, fmt.Errorf("read snapshot: %w", err)
	}

	var f SnapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SnapshotFile{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return f, nil
}
