package store

import (
	"context"

	"github.com/artpar/appforge/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for the app registry.
//
// Records are immutable once inserted. Sequences never move backwards: the
// store remembers the highest sequence it has seen even after the record
// holding it is deleted.
type Store interface {
	// Snapshot returns the current key set and the last assigned sequence.
	Snapshot(ctx context.Context) (domain.RegistrySnapshot, error)

	// Insert adds a record. The slug must be free and the sequence must be
	// greater than the last assigned one.
	Insert(ctx context.Context, rec domain.AppRecord) error

	Get(ctx context.Context, slug string) (*domain.AppRecord, error)

	// List returns records ordered by sequence.
	List(ctx context.Context, opts ListOptions) ([]domain.AppRecord, error)

	// Delete deregisters an app.
	Delete(ctx context.Context, slug string) error

	// ReserveSequence raises the last assigned sequence to at least n.
	ReserveSequence(ctx context.Context, n int64) error

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// ListAll pages through the store and returns every record ordered by sequence.
func ListAll(ctx context.Context, s Store) ([]domain.AppRecord, error) {
	opts := ListOptions{Limit: 1000}
	var all []domain.AppRecord
	for {
		page, err := s.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < opts.Limit {
			return all, nil
		}
		opts.Offset += len(page)
	}
}
