package store

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, setupSQLiteStore(t))
	})
}

func testRecord(slug string, seq int64) domain.AppRecord {
	return domain.AppRecord{
		Slug:        slug,
		Title:       "Title of " + slug,
		Description: "Description of " + slug,
		Sequence:    seq,
		ReferenceID: "app_" + slug,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC),
	}
}

func slugsOf(recs []domain.AppRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Slug
	}
	return out
}

// =============================================================================
// CRUD Tests
// =============================================================================

func TestStore_InsertAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := testRecord("blog", 1)
		require.NoError(t, s.Insert(ctx, rec))

		got, err := s.Get(ctx, "blog")
		require.NoError(t, err)
		assert.Equal(t, rec, *got)
	})
}

func TestStore_GetNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "missing")
		assert.True(t, IsNotFound(err))
	})
}

func TestStore_InsertDuplicateSlug(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, testRecord("blog", 1)))

		err := s.Insert(ctx, testRecord("blog", 2))
		assert.ErrorIs(t, err, ErrDuplicateSlug)
	})
}

func TestStore_InsertStaleSequence(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, testRecord("blog", 5)))

		err := s.Insert(ctx, testRecord("shop", 5))
		assert.ErrorIs(t, err, ErrSequenceConflict)
	})
}

func TestStore_InsertInvalidSlug(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		err := s.Insert(context.Background(), testRecord("Not A Slug", 1))
		assert.ErrorIs(t, err, ErrInvalidData)
	})
}

func TestStore_ListOrderedBySequence(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, testRecord("zeta", 1)))
		require.NoError(t, s.Insert(ctx, testRecord("alpha", 2)))
		require.NoError(t, s.Insert(ctx, testRecord("mid", 3)))

		recs, err := s.List(ctx, DefaultListOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, slugsOf(recs))
	})
}

func TestStore_ListPagination(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i, slug := range []string{"a", "b", "c", "d"} {
			require.NoError(t, s.Insert(ctx, testRecord(slug, int64(i+1))))
		}

		recs, err := s.List(ctx, ListOptions{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, slugsOf(recs))

		recs, err = s.List(ctx, ListOptions{Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, testRecord("blog", 1)))
		require.NoError(t, s.Delete(ctx, "blog"))

		_, err := s.Get(ctx, "blog")
		assert.True(t, IsNotFound(err))

		assert.True(t, IsNotFound(s.Delete(ctx, "blog")))
	})
}

// =============================================================================
// Snapshot / Sequence Tests
// =============================================================================

func TestStore_SnapshotEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		snap, err := s.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Empty(t, snap.Slugs)
		assert.Equal(t, int64(1), snap.NextSequence())
	})
}

func TestStore_SequenceSurvivesDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, testRecord("a", 1)))
		require.NoError(t, s.Insert(ctx, testRecord("b", 2)))
		require.NoError(t, s.Delete(ctx, "b"))

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, snap.Slugs)
		assert.Equal(t, int64(3), snap.NextSequence())
	})
}

func TestStore_ReserveSequenceNeverLowers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.ReserveSequence(ctx, 10))
		require.NoError(t, s.ReserveSequence(ctx, 4))

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), snap.LastSequence)
	})
}

// =============================================================================
// Transaction Tests
// =============================================================================

func TestStore_WithTxCommits(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		err := s.WithTx(ctx, func(tx Store) error {
			return tx.Insert(ctx, testRecord("blog", 1))
		})
		require.NoError(t, err)

		_, err = s.Get(ctx, "blog")
		assert.NoError(t, err)
	})
}

func TestStore_WithTxRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx Store) error {
			require.NoError(t, tx.Insert(ctx, testRecord("blog", 1)))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(ctx, "blog")
		assert.True(t, IsNotFound(err))

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.LastSequence)
	})
}

func TestStore_NestedWithTx(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		err := s.WithTx(ctx, func(tx Store) error {
			return tx.WithTx(ctx, func(inner Store) error {
				return inner.Insert(ctx, testRecord("blog", 1))
			})
		})
		require.NoError(t, err)

		_, err = s.Get(ctx, "blog")
		assert.NoError(t, err)
	})
}

// =============================================================================
// SQLite Persistence Tests
// =============================================================================

func TestSQLiteStore_ReopenPreservesRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, testRecord("blog", 1)))
	require.NoError(t, s.Insert(ctx, testRecord("shop", 2)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.List(ctx, DefaultListOptions())
	require.NoError(t, err)
	assert.Equal(t, []domain.AppRecord{testRecord("blog", 1), testRecord("shop", 2)}, recs)
}

// =============================================================================
// ListOptions Tests
// =============================================================================

func TestListOptions_Normalize(t *testing.T) {
	assert.Equal(t, ListOptions{Limit: 100}, ListOptions{}.Normalize())
	assert.Equal(t, ListOptions{Limit: 1000}, ListOptions{Limit: 5000}.Normalize())
	assert.Equal(t, ListOptions{Limit: 10}, ListOptions{Limit: 10, Offset: -3}.Normalize())
}

func TestListAll_PagesThrough(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 1; i <= 1005; i++ {
		slug := "app-" + strconv.Itoa(i)
		require.NoError(t, s.Insert(ctx, testRecord(slug, int64(i))))
	}

	all, err := ListAll(ctx, s)
	require.NoError(t, err)
	assert.Len(t, all, 1005)
}
