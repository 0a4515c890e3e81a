package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/internal/trail"
	"github.com/dshills/trailstore/pkg/types"
)

// Status summarizes a store.
type Status struct {
	Path           string `json:"path"`
	StoreID        string `json:"store_id"`
	StorageVersion string `json:"storage_version"`
	SchemaVersion  string `json:"schema_version"`
	CreatedAt      string `json:"created_at"`
	SizeBytes      int64  `json:"size_bytes"`

	Nodes        int `json:"nodes" db:"nodes"`
	Edges        int `json:"edges" db:"edges"`
	Files        int `json:"files" db:"files"`
	LocalSymbols int `json:"local_symbols" db:"local_symbols"`
	Locations    int `json:"locations" db:"locations"`
	Errors       int `json:"errors" db:"errors"`
	Ambiguous    int `json:"ambiguous" db:"ambiguous"`
}

// Status reads row counts and metadata.
func (r *Reader) Status(ctx context.Context) (*Status, error) {
	status := Status{Path: r.path}

	counts := `
		SELECT
			(SELECT COUNT(*) FROM node) AS nodes,
			(SELECT COUNT(*) FROM edge) AS edges,
			(SELECT COUNT(*) FROM file) AS files,
			(SELECT COUNT(*) FROM local_symbol) AS local_symbols,
			(SELECT COUNT(*) FROM source_location) AS locations,
			(SELECT COUNT(*) FROM error) AS errors,
			(SELECT COUNT(*) FROM element_component WHERE type = ?) AS ambiguous
	`
	if err := r.db.GetContext(ctx, &status, counts, int(types.ComponentAmbiguous)); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	var err error
	if status.StoreID, err = r.meta(ctx, trail.MetaStoreID); err != nil {
		return nil, err
	}
	if status.StorageVersion, err = r.meta(ctx, trail.MetaStorageVersion); err != nil {
		return nil, err
	}
	if status.CreatedAt, err = r.meta(ctx, trail.MetaCreatedAt); err != nil {
		return nil, err
	}

	if status.SchemaVersion, err = storage.SchemaVersion(ctx, r.db.DB); err != nil {
		return nil, err
	}

	if info, err := os.Stat(r.path); err == nil {
		status.SizeBytes = info.Size()
	}
	return &status, nil
}

func (r *Reader) meta(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := r.db.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value.String, nil
}
