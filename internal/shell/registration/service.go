// Package registration runs app registrations against the registry.
//
// It is the imperative shell around the pure builder in internal/core/domain:
// it reads a registry snapshot, builds the record, and commits it, holding a
// lock so that two requests for the same title never observe the same free
// slug.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/artpar/appforge/internal/core/scaffold"
	"github.com/artpar/appforge/internal/shell/store"
)

// =============================================================================
// Service
// =============================================================================

// Config configures a Service.
type Config struct {
	// DescriptionBudget is the description budget in characters.
	// Zero means domain.DefaultDescriptionBudget.
	DescriptionBudget int

	// Stylesheet is the shared stylesheet the entry shell imports.
	Stylesheet string

	// Now and NewID override the clock and ID source; nil uses the defaults.
	Now   func() time.Time
	NewID func() string
}

// Service registers, looks up and deregisters apps.
type Service struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger

	// mu serializes snapshot -> resolve -> insert.
	mu sync.Mutex
}

// NewService creates a registration service over s.
func NewService(s store.Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DescriptionBudget <= 0 {
		cfg.DescriptionBudget = domain.DefaultDescriptionBudget
	}
	if cfg.Stylesheet == "" {
		cfg.Stylesheet = scaffold.DefaultStylesheet
	}
	return &Service{store: s, cfg: cfg, logger: logger}
}

// DescriptionBudget returns the configured description budget.
func (s *Service) DescriptionBudget() int {
	return s.cfg.DescriptionBudget
}

func (s *Service) buildOptions() domain.BuildOptions {
	return domain.BuildOptions{
		DescriptionBudget: s.cfg.DescriptionBudget,
		Now:               s.cfg.Now,
		NewID:             s.cfg.NewID,
	}
}

// Preview builds the record a registration would produce without storing it.
// A later Register may still get a different slug if another app is
// registered in between.
func (s *Service) Preview(ctx context.Context, req domain.AppRequest) (domain.AppRecord, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return domain.AppRecord{}, fmt.Errorf("read registry: %w", err)
	}
	return domain.BuildRecord(req, snap, s.buildOptions())
}

// Register builds a record for req and inserts it into the registry.
// On any error the registry is unchanged.
func (s *Service) Register(ctx context.Context, req domain.AppRequest) (domain.AppRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec domain.AppRecord
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		snap, err := tx.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("read registry: %w", err)
		}
		rec, err = domain.BuildRecord(req, snap, s.buildOptions())
		if err != nil {
			return err
		}
		if err := domain.ValidateRecord(rec, s.cfg.DescriptionBudget); err != nil {
			return err
		}
		if err := tx.Insert(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicateSlug) {
				return fmt.Errorf("%w: resolved slug %q already present", domain.ErrRegistryCorruption, rec.Slug)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRegistryCorruption) {
			s.logger.Error("registry corruption detected", "error", err)
		} else {
			s.logger.Warn("registration rejected", "error", err)
		}
		return domain.AppRecord{}, err
	}

	s.logger.Info("app registered",
		"slug", rec.Slug,
		"sequence", rec.Sequence,
		"id", rec.ReferenceID,
	)
	return rec, nil
}

// Get returns a registered app.
func (s *Service) Get(ctx context.Context, slug string) (domain.AppRecord, error) {
	rec, err := s.store.Get(ctx, slug)
	if err != nil {
		return domain.AppRecord{}, err
	}
	return *rec, nil
}

// List returns registered apps ordered by sequence.
func (s *Service) List(ctx context.Context, opts store.ListOptions) ([]domain.AppRecord, error) {
	return s.store.List(ctx, opts)
}

// Deregister removes an app. Its slug becomes free; its sequence is not reused.
func (s *Service) Deregister(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("app deregistered", "slug", slug)
	return nil
}

// Scaffold emits the file set of a registered app.
func (s *Service) Scaffold(ctx context.Context, slug string) (scaffold.FileSet, error) {
	rec, err := s.Get(ctx, slug)
	if err != nil {
		return scaffold.FileSet{}, err
	}
	return s.Emit(rec)
}

// Emit renders the file set for rec with the service's scaffold options.
func (s *Service) Emit(rec domain.AppRecord) (scaffold.FileSet, error) {
	return scaffold.Emit(rec, scaffold.Options{Stylesheet: s.cfg.Stylesheet})
}

// Export returns the whole registry in its portable file format.
func (s *Service) Export(ctx context.Context) (store.SnapshotFile, error) {
	return store.Export(ctx, s.store)
}

// Import loads a snapshot into the registry in one transaction.
func (s *Service) Import(ctx context.Context, f store.SnapshotFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := store.Import(ctx, s.store, f, s.cfg.DescriptionBudget); err != nil {
		return err
	}
	s.logger.Info("registry imported", "apps", len(f.Apps), "last_sequence", f.LastSequence)
	return nil
}
