package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the reconciliation engine.
// It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// dsnParams enable foreign keys and WAL on every pooled connection so batch
// workers can write concurrently with readers.
const dsnParams = "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

// NewStorage opens (or creates) the SQLite database at dbPath and runs all
// pending migrations
func NewStorage(dbPath string) (*Storage, error) {
	return NewStorageWithLogger(dbPath, nil)
}

// NewStorageWithLogger is NewStorage with an explicit logger for migration output
func NewStorageWithLogger(dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, err
	}

	s := NewStorageFromDB(db, logger)

	// Run all pending migrations
	if err := runMigrations(context.Background(), db, s.logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewStorageFromDB wraps an already open database. Migrations are not run.
func NewStorageFromDB(db *sql.DB, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{db: db, logger: logger}
}

// Ping checks that the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// inClause returns "?, ?, ?" for n placeholders and the args as []any
func inClause(ids []int64) (string, []any) {
	placeholders := make([]byte, 0, len(ids)*3)
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ", "...)
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	return string(placeholders), args
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	x := v.Int64
	return &x
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	x := v.Float64
	return &x
}

// notFound converts sql.ErrNoRows into ErrNotFound
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}
