package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/namehierarchy"
	"github.com/dshills/trailstore/pkg/types"
)

// UnsolvedSymbolName names the placeholder node unresolved references point at.
const UnsolvedSymbolName = "unsolved symbol"

// MarkAmbiguous flags a recorded edge whose target the analyzer could not
// pin down. The edge itself is kept. Marking twice is a no-op.
func (db *DB) MarkAmbiguous(ctx context.Context, referenceID int64) error {
	return db.write(ctx, "ambiguity", func(tx *storage.Tx) error {
		if err := requireEdge(ctx, tx, referenceID); err != nil {
			return err
		}
		return tx.InsertComponent(ctx, referenceID, types.ComponentAmbiguous, "")
	})
}

// IsAmbiguous reports whether an element was marked ambiguous.
func (db *DB) IsAmbiguous(ctx context.Context, id int64) (bool, error) {
	var ambiguous bool
	err := db.read(func(tx *storage.Tx) error {
		var err error
		ambiguous, err = tx.HasComponent(ctx, id, types.ComponentAmbiguous)
		return err
	})
	return ambiguous, err
}

// RecordReferenceToUnsolvedSymbol records a reference of kind from sourceID
// whose target could not be resolved, together with its site in fileID. The
// edge points at a shared placeholder node. Returns the edge id.
func (db *DB) RecordReferenceToUnsolvedSymbol(ctx context.Context, sourceID int64, kind types.EdgeKind, fileID int64, r types.Range) (int64, error) {
	var id int64
	err := db.write(ctx, "unsolved_reference", func(tx *storage.Tx) error {
		if !kind.Valid() {
			return fmt.Errorf("edge kind %d: %w", kind, types.ErrInvalidKind)
		}
		if err := r.Validate(); err != nil {
			return err
		}
		source, err := lookupNode(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		if err := types.CheckEdgeSource(kind, source.Kind); err != nil {
			return err
		}
		if _, err := lookupFile(ctx, tx, fileID); err != nil {
			return err
		}

		target, err := db.unsolvedNode(ctx, tx)
		if err != nil {
			return err
		}
		id, err = db.insertEdge(ctx, tx, kind, sourceID, target)
		if err != nil {
			return err
		}
		_, err = writeOccurrence(ctx, tx, id, fileID, r, types.LocationToken)
		return err
	})
	return id, err
}

// unsolvedNode returns the placeholder node, creating it on first use. The
// placeholder is found by its component tag, never by name, so a recorded
// symbol with the same name stays distinct. It is looked up each time since a
// rolled back operation or a Clear may have removed it.
func (db *DB) unsolvedNode(ctx context.Context, tx *storage.Tx) (int64, error) {
	id, err := tx.FindComponent(ctx, types.ComponentUnsolved)
	if !errors.Is(err, storage.ErrNotFound) {
		return id, err
	}

	id = db.ids.Next()
	if err := tx.InsertElement(ctx, id, types.ElementNode); err != nil {
		return 0, err
	}
	serialized := namehierarchy.Serialize(namehierarchy.Named(UnsolvedSymbolName))
	if err := tx.InsertNode(ctx, &storage.Node{ID: id, Kind: types.NodeSymbol, SerializedName: serialized}); err != nil {
		return 0, err
	}
	if err := tx.InsertComponent(ctx, id, types.ComponentUnsolved, ""); err != nil {
		return 0, err
	}
	return id, nil
}

func requireEdge(ctx context.Context, tx *storage.Tx, id int64) error {
	kind, err := tx.ElementKind(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && kind != types.ElementEdge) {
		return fmt.Errorf("reference %d: %w", id, types.ErrUnknownReference)
	}
	return err
}
