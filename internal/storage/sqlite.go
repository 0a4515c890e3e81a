package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStorage owns the database handle of one store file.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection: the session keeps one write transaction open
	// and every statement must run on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable WAL mode so readers on other handles see committed data only
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the store at dbPath and applies
// pending migrations.
func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Path returns the path the storage was opened with.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// DB exposes the underlying handle for read-only consumers.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx wraps a SQL transaction. All row-level operations of the store run
// through a Tx.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *Tx) querier() querier {
	return t.tx
}

// Savepoint opens a named savepoint inside the transaction.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

// Release merges a savepoint into the enclosing transaction.
func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// RollbackTo discards everything written since the savepoint and releases it.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return err
	}
	return t.Release(ctx, name)
}

// Meta operations

// PutMeta stores a key/value pair in the meta table.
func (t *Tx) PutMeta(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := t.querier().ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put meta %s: %w", key, err)
	}
	return nil
}

// GetMeta reads a meta value. ErrNotFound if absent.
func (t *Tx) GetMeta(ctx context.Context, key string) (string, error) {
	return getMeta(ctx, t.querier(), key)
}

// GetMeta reads a meta value outside of a transaction.
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	return getMeta(ctx, s.db, key)
}

func getMeta(ctx context.Context, q querier, key string) (string, error) {
	var value sql.NullString
	err := q.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// MaxElementID returns the highest id in the element table, 0 when empty.
func (t *Tx) MaxElementID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := t.querier().QueryRowContext(ctx, "SELECT MAX(id) FROM element").Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read element high-water mark: %w", err)
	}
	return max.Int64, nil
}

// recordTables lists every table holding recorded data, children first.
var recordTables = []string{
	"occurrence",
	"source_location",
	"element_component",
	"component_access",
	"error",
	"filecontent",
	"file",
	"edge",
	"symbol",
	"local_symbol",
	"node",
	"element",
}

// ClearAll deletes every recorded row. Schema and meta rows are kept.
func (t *Tx) ClearAll(ctx context.Context) error {
	for _, table := range recordTables {
		if _, err := t.querier().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// CountRows returns the number of rows in one of the record tables.
func (t *Tx) CountRows(ctx context.Context, table string) (int, error) {
	known := false
	for _, name := range recordTables {
		if name == table {
			known = true
			break
		}
	}
	if !known {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var n int
	if err := t.querier().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
