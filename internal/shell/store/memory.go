package store

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/appforge/internal/core/domain"
)

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	records      map[string]domain.AppRecord
	lastSequence int64
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{records: make(map[string]domain.AppRecord)}}
}

func (s *MemoryStore) Snapshot(ctx context.Context) (domain.RegistrySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot(), nil
}

func (s *MemoryStore) Insert(ctx context.Context, rec domain.AppRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insert(rec)
}

func (s *MemoryStore) Get(ctx context.Context, slug string) (*domain.AppRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.get(slug)
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]domain.AppRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.list(opts), nil
}

func (s *MemoryStore) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.delete(slug)
}

func (s *MemoryStore) ReserveSequence(ctx context.Context, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reserve(n)
	return nil
}

// WithTx runs fn against a copy of the state and swaps it in if fn succeeds.
// The store is write-locked for the duration of fn.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txMemoryStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// =============================================================================
// Transaction View
// =============================================================================

// txMemoryStore operates on a private state copy without locking; the parent
// MemoryStore holds the write lock.
type txMemoryStore struct {
	state memoryState
}

func (t *txMemoryStore) Snapshot(ctx context.Context) (domain.RegistrySnapshot, error) {
	return t.state.snapshot(), nil
}

func (t *txMemoryStore) Insert(ctx context.Context, rec domain.AppRecord) error {
	return t.state.insert(rec)
}

func (t *txMemoryStore) Get(ctx context.Context, slug string) (*domain.AppRecord, error) {
	return t.state.get(slug)
}

func (t *txMemoryStore) List(ctx context.Context, opts ListOptions) ([]domain.AppRecord, error) {
	return t.state.list(opts), nil
}

func (t *txMemoryStore) Delete(ctx context.Context, slug string) error {
	return t.state.delete(slug)
}

func (t *txMemoryStore) ReserveSequence(ctx context.Context, n int64) error {
	t.state.reserve(n)
	return nil
}

// WithTx on a transaction view runs fn in the same transaction.
func (t *txMemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *txMemoryStore) Close() error {
	return nil
}

// =============================================================================
// State Operations
// =============================================================================

func (m memoryState) clone() memoryState {
	records := make(map[string]domain.AppRecord, len(m.records))
	for k, v := range m.records {
		records[k] = v
	}
	return memoryState{records: records, lastSequence: m.lastSequence}
}

func (m memoryState) ordered() []domain.AppRecord {
	recs := make([]domain.AppRecord, 0, len(m.records))
	for _, r := range m.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Sequence < recs[j].Sequence })
	return recs
}

func (m memoryState) snapshot() domain.RegistrySnapshot {
	recs := m.ordered()
	slugs := make([]string, len(recs))
	for i, r := range recs {
		slugs[i] = r.Slug
	}
	return domain.RegistrySnapshot{Slugs: slugs, LastSequence: m.lastSequence}
}

func (m *memoryState) insert(rec domain.AppRecord) error {
	if err := domain.ValidateSlug(rec.Slug); err != nil {
		return NewStoreError("Insert", "app", rec.Slug, err.Error(), ErrInvalidData)
	}
	if _, exists := m.records[rec.Slug]; exists {
		return NewStoreError("Insert", "app", rec.Slug, "slug already registered", ErrDuplicateSlug)
	}
	if rec.Sequence <= m.lastSequence {
		return NewStoreError("Insert", "app", rec.Slug, "sequence not after last assigned", ErrSequenceConflict)
	}
	m.records[rec.Slug] = rec
	m.lastSequence = rec.Sequence
	return nil
}

func (m memoryState) get(slug string) (*domain.AppRecord, error) {
	rec, ok := m.records[slug]
	if !ok {
		return nil, NewStoreError("Get", "app", slug, "app not found", ErrNotFound)
	}
	return &rec, nil
}

func (m memoryState) list(opts ListOptions) []domain.AppRecord {
	opts = opts.Normalize()
	recs := m.ordered()
	if opts.Offset >= len(recs) {
		return []domain.AppRecord{}
	}
	end := opts.Offset + opts.Limit
	if end > len(recs) {
		end = len(recs)
	}
	return recs[opts.Offset:end]
}

func (m *memoryState) delete(slug string) error {
	if _, ok := m.records[slug]; !ok {
		return NewStoreError("Delete", "app", slug, "app not found", ErrNotFound)
	}
	delete(m.records, slug)
	return nil
}

func (m *memoryState) reserve(n int64) {
	if n > m.lastSequence {
		m.lastSequence = n
	}
}
