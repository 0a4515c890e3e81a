package trail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/trailstore/internal/observability"
	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/types"
)

const (
	// Extension is the canonical suffix of a store file.
	Extension = ".srctrldb"

	// MemoryPath opens a private in-memory store.
	MemoryPath = ":memory:"

	// savepoint wrapping every record operation
	opSavepoint = "trail_op"
)

// Meta keys written when a store is initialized.
const (
	MetaStorageVersion = "storage_version"
	MetaStoreID        = "store_id"
	MetaCreatedAt      = "created_at"
)

// DB is an open recording session on one store file. It is not safe for
// concurrent use; several DB values may be open in one process.
type DB struct {
	store  *storage.SQLiteStorage
	tx     *storage.Tx
	ids    *Allocator
	logger *slog.Logger
	path   string
	closed bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// StorePath appends the canonical extension to path if it is missing.
func StorePath(path string) string {
	if path == MemoryPath || strings.HasSuffix(path, Extension) {
		return path
	}
	return path + Extension
}

// Exists reports whether a store file is present at path, without opening it.
func Exists(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("store path is empty")
	}
	path = StorePath(path)
	if path == MemoryPath {
		return false, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat store: %w", err)
	}
	return !info.IsDir(), nil
}

// Create opens a new store at path. It fails with ErrAlreadyExists if a
// store is already present.
func Create(ctx context.Context, path string, opts ...Option) (*DB, error) {
	exists, err := Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", StorePath(path), types.ErrAlreadyExists)
	}
	return Open(ctx, path, false, opts...)
}

// Open opens the store at path, creating it if absent. When clear is set every
// recorded row is deleted before the session starts; the deletion is durable
// even if the session is never committed.
func Open(ctx context.Context, path string, clear bool, opts ...Option) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	path = StorePath(path)

	ctx, span := observability.Tracer.Start(ctx, "trail.Open", trace.WithAttributes(
		attribute.String("path", path),
		attribute.Bool("clear", clear),
	))
	defer span.End()

	db := &DB{logger: slog.Default(), path: path}
	for _, opt := range opts {
		opt(db)
	}

	store, err := storage.NewSQLiteStorage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	db.store = store

	if err := db.begin(ctx, clear); err != nil {
		_ = store.Close()
		return nil, err
	}

	observability.OpenStores.Inc()
	db.logger.Info("store opened", "path", path, "clear", clear, "next_id", db.ids.Last()+1)
	return db, nil
}

// begin prepares the store and starts the session transaction. Clearing and
// metadata are committed right away so they do not depend on a later Commit.
func (db *DB) begin(ctx context.Context, clear bool) error {
	setup, err := db.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if clear {
		if err := setup.ClearAll(ctx); err != nil {
			_ = setup.Rollback()
			return err
		}
	}
	if err := initMeta(ctx, setup); err != nil {
		_ = setup.Rollback()
		return err
	}
	if err := setup.Commit(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	tx, err := db.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	max, err := tx.MaxElementID(ctx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	db.tx = tx
	db.ids = NewAllocator(max)
	return nil
}

// initMeta writes the store metadata on first open.
func initMeta(ctx context.Context, tx *storage.Tx) error {
	if err := tx.PutMeta(ctx, MetaStorageVersion, storage.StorageVersion); err != nil {
		return err
	}
	_, err := tx.GetMeta(ctx, MetaStoreID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := tx.PutMeta(ctx, MetaStoreID, uuid.NewString()); err != nil {
		return err
	}
	return tx.PutMeta(ctx, MetaCreatedAt, time.Now().UTC().Format(time.RFC3339))
}

// Path returns the normalized path of the store file.
func (db *DB) Path() string {
	return db.path
}

// StoreID returns the identity written to the meta table on creation.
func (db *DB) StoreID(ctx context.Context) (string, error) {
	if err := db.checkOpen(); err != nil {
		return "", err
	}
	return db.tx.GetMeta(ctx, MetaStoreID)
}

// Commit durably persists everything recorded since the last commit and
// starts a new transaction. If either step fails the session is closed and
// every later call fails with ErrStoreClosed.
//
// The session transaction is bound to the context it was started with, so
// cancelling the context passed to Open or to the previous Commit discards
// uncommitted work.
func (db *DB) Commit(ctx context.Context) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	ctx, span := observability.Tracer.Start(ctx, "trail.Commit")
	defer span.End()

	start := time.Now()
	if err := db.tx.Commit(); err != nil {
		span.RecordError(err)
		db.abandon()
		return fmt.Errorf("failed to commit: %w", err)
	}
	observability.CommitDuration.Observe(time.Since(start).Seconds())

	tx, err := db.store.BeginTx(ctx)
	if err != nil {
		db.abandon()
		return fmt.Errorf("failed to begin transaction after commit: %w", err)
	}
	db.tx = tx

	db.logger.Debug("store committed", "path", db.path, "last_id", db.ids.Last(), "duration", time.Since(start))
	return nil
}

// Clear deletes every recorded row and resets the id allocator. Store
// metadata is kept. The deletion becomes durable on the next Commit.
func (db *DB) Clear(ctx context.Context) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	ctx, span := observability.Tracer.Start(ctx, "trail.Clear")
	defer span.End()

	if err := db.tx.ClearAll(ctx); err != nil {
		return err
	}
	db.ids.Reset()

	db.logger.Info("store cleared", "path", db.path)
	return nil
}

// Close discards uncommitted work and releases the store. Every later call,
// Close included, fails with ErrStoreClosed.
func (db *DB) Close() error {
	if db.closed {
		return types.ErrStoreClosed
	}
	db.closed = true
	observability.OpenStores.Dec()

	var errs []error
	if err := db.tx.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("failed to roll back: %w", err))
	}
	if err := db.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}

	db.logger.Info("store closed", "path", db.path)
	return errors.Join(errs...)
}

// abandon closes a session whose transaction is gone.
func (db *DB) abandon() {
	db.closed = true
	_ = db.store.Close()
	observability.OpenStores.Dec()
	db.logger.Warn("store session abandoned", "path", db.path)
}

func (db *DB) checkOpen() error {
	if db == nil || db.closed {
		return types.ErrStoreClosed
	}
	return nil
}

// write runs fn inside a savepoint. A failing fn leaves no rows behind.
func (db *DB) write(ctx context.Context, entity string, fn func(tx *storage.Tx) error) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	if err := db.tx.Savepoint(ctx, opSavepoint); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}

	if err := fn(db.tx); err != nil {
		observability.RejectedTotal.WithLabelValues(entity).Inc()
		db.logger.Debug("record rejected", "entity", entity, "error", err)
		if rbErr := db.tx.RollbackTo(ctx, opSavepoint); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back savepoint: %w", rbErr))
		}
		return err
	}

	if err := db.tx.Release(ctx, opSavepoint); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	observability.RecordedTotal.WithLabelValues(entity).Inc()
	return nil
}

// read runs fn on the session transaction.
func (db *DB) read(fn func(tx *storage.Tx) error) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return fn(db.tx)
}
