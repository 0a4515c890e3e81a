package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/pkg/types"
)

// Element operations

// InsertElement inserts the base identity row of a recordable entity.
func (t *Tx) InsertElement(ctx context.Context, id int64, kind types.ElementKind) error {
	if _, err := t.querier().ExecContext(ctx, "INSERT INTO element (id, kind) VALUES (?, ?)", id, int(kind)); err != nil {
		return fmt.Errorf("failed to insert element %d: %w", id, err)
	}
	return nil
}

// ElementKind returns the variant tag of an element. ErrNotFound if absent.
func (t *Tx) ElementKind(ctx context.Context, id int64) (types.ElementKind, error) {
	var kind int
	err := t.querier().QueryRowContext(ctx, "SELECT kind FROM element WHERE id = ?", id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return types.ElementKind(kind), nil
}

// Node operations

// InsertNode inserts a node row. The element row must exist.
func (t *Tx) InsertNode(ctx context.Context, node *Node) error {
	query := `INSERT INTO node (id, type, serialized_name) VALUES (?, ?, ?)`
	if _, err := t.querier().ExecContext(ctx, query, node.ID, int(node.Kind), node.SerializedName); err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

// GetNode reads a node by id. ErrNotFound if absent.
func (t *Tx) GetNode(ctx context.Context, id int64) (*Node, error) {
	var node Node
	var kind int
	err := t.querier().QueryRowContext(ctx,
		"SELECT id, type, serialized_name FROM node WHERE id = ?", id,
	).Scan(&node.ID, &kind, &node.SerializedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	node.Kind = types.NodeKind(kind)
	return &node, nil
}

// FindNode returns the id of the node with the given kind and serialized
// name. The unsolved placeholder is never returned. ErrNotFound if absent.
func (t *Tx) FindNode(ctx context.Context, kind types.NodeKind, serializedName string) (int64, error) {
	query := `
		SELECT id FROM node
		WHERE serialized_name = ? AND type = ?
		  AND id NOT IN (SELECT element_id FROM element_component WHERE type = ?)
		ORDER BY id LIMIT 1
	`
	var id int64
	err := t.querier().QueryRowContext(ctx, query,
		serializedName, int(kind), int(types.ComponentUnsolved),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertSymbol inserts the definition row of a symbol node.
func (t *Tx) InsertSymbol(ctx context.Context, nodeID int64, def types.DefinitionKind) error {
	if _, err := t.querier().ExecContext(ctx,
		"INSERT INTO symbol (id, definition_kind) VALUES (?, ?)", nodeID, int(def),
	); err != nil {
		return fmt.Errorf("failed to insert symbol: %w", err)
	}
	return nil
}

// GetSymbol returns the definition kind of a node, DefinitionNone if the node
// has no symbol row.
func (t *Tx) GetSymbol(ctx context.Context, nodeID int64) (types.DefinitionKind, error) {
	var def int
	err := t.querier().QueryRowContext(ctx, "SELECT definition_kind FROM symbol WHERE id = ?", nodeID).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DefinitionNone, nil
	}
	if err != nil {
		return types.DefinitionNone, err
	}
	return types.DefinitionKind(def), nil
}

// Local symbol operations

// InsertLocalSymbol inserts a local symbol row. The element row must exist.
func (t *Tx) InsertLocalSymbol(ctx context.Context, sym *LocalSymbol) error {
	if _, err := t.querier().ExecContext(ctx,
		"INSERT INTO local_symbol (id, name) VALUES (?, ?)", sym.ID, sym.Name,
	); err != nil {
		return fmt.Errorf("failed to insert local symbol: %w", err)
	}
	return nil
}

// Edge operations

// InsertEdge inserts an edge row. The element row must exist.
func (t *Tx) InsertEdge(ctx context.Context, edge *Edge) error {
	query := `INSERT INTO edge (id, type, source_node_id, target_node_id) VALUES (?, ?, ?, ?)`
	if _, err := t.querier().ExecContext(ctx, query,
		edge.ID, int(edge.Kind), edge.SourceID, edge.TargetID,
	); err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

// GetEdge reads an edge by id. ErrNotFound if absent.
func (t *Tx) GetEdge(ctx context.Context, id int64) (*Edge, error) {
	var edge Edge
	var kind int
	err := t.querier().QueryRowContext(ctx,
		"SELECT id, type, source_node_id, target_node_id FROM edge WHERE id = ?", id,
	).Scan(&edge.ID, &kind, &edge.SourceID, &edge.TargetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	edge.Kind = types.EdgeKind(kind)
	return &edge, nil
}

// FindEdge returns the id of the edge with the given kind and endpoints.
// ErrNotFound if absent.
func (t *Tx) FindEdge(ctx context.Context, kind types.EdgeKind, sourceID, targetID int64) (int64, error) {
	var id int64
	err := t.querier().QueryRowContext(ctx,
		"SELECT id FROM edge WHERE type = ? AND source_node_id = ? AND target_node_id = ? ORDER BY id LIMIT 1",
		int(kind), sourceID, targetID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Component operations

// InsertAccess inserts the visibility row of a node.
func (t *Tx) InsertAccess(ctx context.Context, nodeID int64, access types.AccessKind) error {
	if _, err := t.querier().ExecContext(ctx,
		"INSERT INTO component_access (node_id, type) VALUES (?, ?)", nodeID, int(access),
	); err != nil {
		return fmt.Errorf("failed to insert access: %w", err)
	}
	return nil
}

// GetAccess returns the visibility of a node. ErrNotFound if unspecified.
func (t *Tx) GetAccess(ctx context.Context, nodeID int64) (types.AccessKind, error) {
	var access int
	err := t.querier().QueryRowContext(ctx, "SELECT type FROM component_access WHERE node_id = ?", nodeID).Scan(&access)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return types.AccessKind(access), nil
}

// InsertComponent flags an element. Flagging twice with the same kind is a
// no-op.
func (t *Tx) InsertComponent(ctx context.Context, elementID int64, kind types.ComponentKind, data string) error {
	query := `
		INSERT INTO element_component (element_id, type, data) VALUES (?, ?, ?)
		ON CONFLICT(element_id, type) DO NOTHING
	`
	if _, err := t.querier().ExecContext(ctx, query, elementID, int(kind), data); err != nil {
		return fmt.Errorf("failed to insert element component: %w", err)
	}
	return nil
}

// HasComponent reports whether an element carries the given flag.
func (t *Tx) HasComponent(ctx context.Context, elementID int64, kind types.ComponentKind) (bool, error) {
	var n int
	err := t.querier().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM element_component WHERE element_id = ? AND type = ?", elementID, int(kind),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindComponent returns the first element carrying the given flag.
// ErrNotFound if none does.
func (t *Tx) FindComponent(ctx context.Context, kind types.ComponentKind) (int64, error) {
	var id int64
	err := t.querier().QueryRowContext(ctx,
		"SELECT element_id FROM element_component WHERE type = ? ORDER BY element_id LIMIT 1", int(kind),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Error operations

// InsertError inserts an analysis error row. The element row must exist.
func (t *Tx) InsertError(ctx context.Context, rec *ErrorRecord) error {
	query := `
		INSERT INTO error (id, message, fatal, indexed, file_id, start_line, start_column, end_line, end_column)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var fileID sql.NullInt64
	var startLine, startCol, endLine, endCol sql.NullInt64
	if rec.FileID != 0 {
		fileID = sql.NullInt64{Int64: rec.FileID, Valid: true}
		startLine = sql.NullInt64{Int64: int64(rec.Range.Start.Line), Valid: true}
		startCol = sql.NullInt64{Int64: int64(rec.Range.Start.Column), Valid: true}
		endLine = sql.NullInt64{Int64: int64(rec.Range.End.Line), Valid: true}
		endCol = sql.NullInt64{Int64: int64(rec.Range.End.Column), Valid: true}
	}
	if _, err := t.querier().ExecContext(ctx, query,
		rec.ID, rec.Message, rec.Fatal, rec.Indexed, fileID, startLine, startCol, endLine, endCol,
	); err != nil {
		return fmt.Errorf("failed to insert error: %w", err)
	}
	return nil
}
