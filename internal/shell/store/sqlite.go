package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/appforge/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// One writer at a time; also keeps a ":memory:" database on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (domain.RegistrySnapshot, error) {
	return snapshot(ctx, s.db)
}

// Insert runs in its own transaction so the record and the sequence
// watermark move together.
func (s *SQLiteStore) Insert(ctx context.Context, rec domain.AppRecord) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.Insert(ctx, rec)
	})
}

func (s *SQLiteStore) Get(ctx context.Context, slug string) (*domain.AppRecord, error) {
	return getApp(ctx, s.db, slug)
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]domain.AppRecord, error) {
	return listApps(ctx, s.db, opts)
}

func (s *SQLiteStore) Delete(ctx context.Context, slug string) error {
	return deleteApp(ctx, s.db, slug)
}

func (s *SQLiteStore) ReserveSequence(ctx context.Context, n int64) error {
	return reserveSequence(ctx, s.db, n)
}

// =============================================================================
// Transaction Support
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// txSQLiteStore is a Store bound to an open transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (t *txSQLiteStore) Snapshot(ctx context.Context) (domain.RegistrySnapshot, error) {
	return snapshot(ctx, t.tx)
}

func (t *txSQLiteStore) Insert(ctx context.Context, rec domain.AppRecord) error {
	return insertApp(ctx, t.tx, rec)
}

func (t *txSQLiteStore) Get(ctx context.Context, slug string) (*domain.AppRecord, error) {
	return getApp(ctx, t.tx, slug)
}

func (t *txSQLiteStore) List(ctx context.Context, opts ListOptions) ([]domain.AppRecord, error) {
	return listApps(ctx, t.tx, opts)
}

func (t *txSQLiteStore) Delete(ctx context.Context, slug string) error {
	return deleteApp(ctx, t.tx, slug)
}

func (t *txSQLiteStore) ReserveSequence(ctx context.Context, n int64) error {
	return reserveSequence(ctx, t.tx, n)
}

// WithTx on a transaction store runs fn in the same transaction.
func (t *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *txSQLiteStore) Close() error {
	return nil
}

// =============================================================================
// App Operations
// =============================================================================

// appRow represents an app row in the database.
type appRow struct {
	Slug        string `db:"slug"`
	ReferenceID string `db:"reference_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Sequence    int64  `db:"sequence"`
	CreatedAt   string `db:"created_at"`
}

func snapshot(ctx context.Context, exec executor) (domain.RegistrySnapshot, error) {
	var snap domain.RegistrySnapshot
	if err := exec.SelectContext(ctx, &snap.Slugs, `SELECT slug FROM apps ORDER BY sequence`); err != nil {
		return domain.RegistrySnapshot{}, NewStoreError("Snapshot", "app", "", err.Error(), err)
	}
	if err := exec.GetContext(ctx, &snap.LastSequence, `SELECT last_sequence FROM registry_state WHERE id = 1`); err != nil {
		return domain.RegistrySnapshot{}, NewStoreError("Snapshot", "registry_state", "", err.Error(), err)
	}
	return snap, nil
}

func insertApp(ctx context.Context, exec executor, rec domain.AppRecord) error {
	if err := domain.ValidateSlug(rec.Slug); err != nil {
		return NewStoreError("Insert", "app", rec.Slug, err.Error(), ErrInvalidData)
	}

	var last int64
	if err := exec.GetContext(ctx, &last, `SELECT last_sequence FROM registry_state WHERE id = 1`); err != nil {
		return NewStoreError("Insert", "registry_state", "", err.Error(), err)
	}
	if rec.Sequence <= last {
		return NewStoreError("Insert", "app", rec.Slug, "sequence not after last assigned", ErrSequenceConflict)
	}

	query := `
		INSERT INTO apps (slug, reference_id, title, description, sequence, created_at)
		VALUES (:slug, :reference_id, :title, :description, :sequence, :created_at)`

	row := appRow{
		Slug:        rec.Slug,
		ReferenceID: rec.ReferenceID,
		Title:       rec.Title,
		Description: rec.Description,
		Sequence:    rec.Sequence,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if _, err := exec.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: apps.slug") {
			return NewStoreError("Insert", "app", rec.Slug, "slug already registered", ErrDuplicateSlug)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: apps.sequence") {
			return NewStoreError("Insert", "app", rec.Slug, "sequence already used", ErrSequenceConflict)
		}
		return NewStoreError("Insert", "app", rec.Slug, err.Error(), err)
	}

	if _, err := exec.ExecContext(ctx, `UPDATE registry_state SET last_sequence = ? WHERE id = 1`, rec.Sequence); err != nil {
		return NewStoreError("Insert", "registry_state", "", err.Error(), err)
	}
	return nil
}

func getApp(ctx context.Context, exec executor, slug string) (*domain.AppRecord, error) {
	var row appRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM apps WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("Get", "app", slug, "app not found", ErrNotFound)
		}
		return nil, NewStoreError("Get", "app", slug, err.Error(), err)
	}
	return rowToApp(&row)
}

func listApps(ctx context.Context, exec executor, opts ListOptions) ([]domain.AppRecord, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM apps ORDER BY sequence ASC LIMIT ? OFFSET ?`

	var rows []appRow
	if err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("List", "app", "", err.Error(), err)
	}

	apps := make([]domain.AppRecord, 0, len(rows))
	for _, row := range rows {
		app, err := rowToApp(&row)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

func deleteApp(ctx context.Context, exec executor, slug string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM apps WHERE slug = ?`, slug)
	if err != nil {
		return NewStoreError("Delete", "app", slug, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("Delete", "app", slug, "app not found", ErrNotFound)
	}
	return nil
}

func reserveSequence(ctx context.Context, exec executor, n int64) error {
	_, err := exec.ExecContext(ctx,
		`UPDATE registry_state SET last_sequence = MAX(last_sequence, ?) WHERE id = 1`, n)
	if err != nil {
		return NewStoreError("ReserveSequence", "registry_state", "", err.Error(), err)
	}
	return nil
}

func rowToApp(row *appRow) (*domain.AppRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToApp", "app", row.Slug, "failed to parse created_at", ErrInvalidData)
	}
	return &domain.AppRecord{
		Slug:        row.Slug,
		Title:       row.Title,
		Description: row.Description,
		Sequence:    row.Sequence,
		ReferenceID: row.ReferenceID,
		CreatedAt:   createdAt,
	}, nil
}
