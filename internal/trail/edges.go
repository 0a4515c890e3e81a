package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/types"
)

// Edge is a recorded relation between two nodes.
type Edge = storage.Edge

// RecordEdge records a relation of kind from sourceID to targetID. Both ends
// must be recorded nodes whose kinds the edge kind allows. Recording the same
// relation twice returns the existing id.
func (db *DB) RecordEdge(ctx context.Context, kind types.EdgeKind, sourceID, targetID int64) (int64, error) {
	var id int64
	err := db.write(ctx, "edge", func(tx *storage.Tx) error {
		if !kind.Valid() {
			return fmt.Errorf("edge kind %d: %w", kind, types.ErrInvalidKind)
		}
		source, err := lookupNode(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		target, err := lookupNode(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if err := types.CheckEdge(kind, source.Kind, target.Kind); err != nil {
			return err
		}
		id, err = db.insertEdge(ctx, tx, kind, sourceID, targetID)
		return err
	})
	return id, err
}

// insertEdge writes an edge that has already been validated, reusing an
// identical one.
func (db *DB) insertEdge(ctx context.Context, tx *storage.Tx, kind types.EdgeKind, sourceID, targetID int64) (int64, error) {
	existing, err := tx.FindEdge(ctx, kind, sourceID, targetID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}

	id := db.ids.Next()
	if err := tx.InsertElement(ctx, id, types.ElementEdge); err != nil {
		return 0, err
	}
	if err := tx.InsertEdge(ctx, &storage.Edge{ID: id, Kind: kind, SourceID: sourceID, TargetID: targetID}); err != nil {
		return 0, err
	}
	return id, nil
}

func lookupNode(ctx context.Context, tx *storage.Tx, id int64) (*storage.Node, error) {
	node, err := tx.GetNode(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("node %d: %w", id, types.ErrUnknownNode)
	}
	return node, err
}

// Edge reads back a recorded edge. ErrUnknownReference if id is not an edge.
func (db *DB) Edge(ctx context.Context, id int64) (*Edge, error) {
	var edge *Edge
	err := db.read(func(tx *storage.Tx) error {
		var err error
		edge, err = tx.GetEdge(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("edge %d: %w", id, types.ErrUnknownReference)
		}
		return err
	})
	return edge, err
}

// RecordMember records targetID as a member of sourceID.
func (db *DB) RecordMember(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeMember, sourceID, targetID)
}

// RecordTypeUsage records a use of targetID as a type.
func (db *DB) RecordTypeUsage(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeTypeUsage, sourceID, targetID)
}

// RecordUsage records a read or write of targetID.
func (db *DB) RecordUsage(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeUsage, sourceID, targetID)
}

// RecordCall records a call of targetID.
func (db *DB) RecordCall(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeCall, sourceID, targetID)
}

// RecordInheritance records sourceID deriving from targetID.
func (db *DB) RecordInheritance(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeInheritance, sourceID, targetID)
}

// RecordOverride records sourceID overriding targetID.
func (db *DB) RecordOverride(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeOverride, sourceID, targetID)
}

// RecordTypeArgument records targetID passed as a type argument.
func (db *DB) RecordTypeArgument(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeTypeArgument, sourceID, targetID)
}

// RecordTemplateSpecialization records sourceID specializing the template targetID.
func (db *DB) RecordTemplateSpecialization(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeTemplateSpecialization, sourceID, targetID)
}

// RecordInclude records file sourceID including file targetID.
func (db *DB) RecordInclude(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeInclude, sourceID, targetID)
}

// RecordImport records sourceID importing targetID.
func (db *DB) RecordImport(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeImport, sourceID, targetID)
}

// RecordMacroUsage records an expansion of the macro targetID.
func (db *DB) RecordMacroUsage(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeMacroUsage, sourceID, targetID)
}

// RecordAnnotationUsage records sourceID annotated with targetID.
func (db *DB) RecordAnnotationUsage(ctx context.Context, sourceID, targetID int64) (int64, error) {
	return db.RecordEdge(ctx, types.EdgeAnnotationUsage, sourceID, targetID)
}
