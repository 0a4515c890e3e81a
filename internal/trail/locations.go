package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/types"
)

// RecordLocation attaches range in fileID to an element and returns the id
// of the source location. Identical ranges of the same kind in the same file
// share one location; recording the same occurrence twice is a no-op.
func (db *DB) RecordLocation(ctx context.Context, elementID, fileID int64, r types.Range, kind types.LocationKind) (int64, error) {
	return db.recordLocation(ctx, elementID, 0, types.ErrUnknownElement, fileID, r, kind)
}

// RecordSymbolLocation records where a node is named.
func (db *DB) RecordSymbolLocation(ctx context.Context, nodeID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, nodeID, types.ElementNode, types.ErrUnknownNode, fileID, r, types.LocationToken)
}

// RecordSymbolScopeLocation records the lexical extent of a node's body.
func (db *DB) RecordSymbolScopeLocation(ctx context.Context, nodeID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, nodeID, types.ElementNode, types.ErrUnknownNode, fileID, r, types.LocationScope)
}

// RecordSymbolSignatureLocation records the extent of a node's signature.
func (db *DB) RecordSymbolSignatureLocation(ctx context.Context, nodeID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, nodeID, types.ElementNode, types.ErrUnknownNode, fileID, r, types.LocationSignature)
}

// RecordQualifierLocation records a qualifier naming a node, such as the
// "std" in "std::vector".
func (db *DB) RecordQualifierLocation(ctx context.Context, nodeID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, nodeID, types.ElementNode, types.ErrUnknownNode, fileID, r, types.LocationQualifier)
}

// RecordReferenceLocation records the site of an edge.
func (db *DB) RecordReferenceLocation(ctx context.Context, edgeID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, edgeID, types.ElementEdge, types.ErrUnknownReference, fileID, r, types.LocationToken)
}

// RecordLocalSymbolLocation records a use of a local symbol.
func (db *DB) RecordLocalSymbolLocation(ctx context.Context, localSymbolID, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, localSymbolID, types.ElementLocalSymbol, types.ErrUnknownElement, fileID, r, types.LocationLocalSymbol)
}

// RecordAtomicSourceRange marks a range of fileID that must not be split,
// such as a macro expansion. It is attributed to the file itself.
func (db *DB) RecordAtomicSourceRange(ctx context.Context, fileID int64, r types.Range) (int64, error) {
	return db.recordLocation(ctx, fileID, types.ElementFile, types.ErrUnknownFile, fileID, r, types.LocationAtomicRange)
}

// recordLocation validates and writes one occurrence. want restricts the
// element variant, 0 accepts any; unknown is returned for a missing or
// mismatched element.
func (db *DB) recordLocation(ctx context.Context, elementID int64, want types.ElementKind, unknown error, fileID int64, r types.Range, kind types.LocationKind) (int64, error) {
	var locationID int64
	err := db.write(ctx, "location", func(tx *storage.Tx) error {
		if !kind.Valid() {
			return fmt.Errorf("location kind %d: %w", kind, types.ErrInvalidKind)
		}
		if err := r.Validate(); err != nil {
			return err
		}

		got, err := tx.ElementKind(ctx, elementID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && want != 0 && got != want) {
			return fmt.Errorf("element %d: %w", elementID, unknown)
		}
		if err != nil {
			return err
		}
		if _, err := lookupFile(ctx, tx, fileID); err != nil {
			return err
		}

		locationID, err = writeOccurrence(ctx, tx, elementID, fileID, r, kind)
		return err
	})
	return locationID, err
}

func writeOccurrence(ctx context.Context, tx *storage.Tx, elementID, fileID int64, r types.Range, kind types.LocationKind) (int64, error) {
	loc := &storage.SourceLocation{FileID: fileID, Range: r, Kind: kind}
	if err := tx.FindOrInsertSourceLocation(ctx, loc); err != nil {
		return 0, err
	}
	if err := tx.InsertOccurrence(ctx, elementID, loc.ID); err != nil {
		return 0, err
	}
	return loc.ID, nil
}

// Locations returns every source location recorded for an element.
func (db *DB) Locations(ctx context.Context, elementID int64) ([]*storage.SourceLocation, error) {
	var locations []*storage.SourceLocation
	err := db.read(func(tx *storage.Tx) error {
		var err error
		locations, err = tx.ListLocations(ctx, elementID)
		return err
	})
	return locations, err
}
