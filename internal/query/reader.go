package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/internal/trail"
	"github.com/dshills/trailstore/pkg/namehierarchy"
	"github.com/dshills/trailstore/pkg/types"
)

// DefaultLimit caps list queries that are given no limit.
const DefaultLimit = 100

// Reader gives read-only access to a committed store.
type Reader struct {
	db   *sqlx.DB
	path string
}

// Node is a node row with its decoded name.
type Node struct {
	ID             int64          `db:"id" json:"id"`
	Kind           types.NodeKind `db:"type" json:"-"`
	SerializedName string         `db:"serialized_name" json:"-"`
	DefinitionKind sql.NullInt64  `db:"definition_kind" json:"-"`

	Name       namehierarchy.NameHierarchy `db:"-" json:"-"`
	KindName   string                      `db:"-" json:"kind"`
	Qualified  string                      `db:"-" json:"name"`
	Definition string                      `db:"-" json:"definition"`
}

// Edge is an edge row plus its ambiguity flag.
type Edge struct {
	ID        int64          `db:"id" json:"id"`
	Kind      types.EdgeKind `db:"type" json:"-"`
	SourceID  int64          `db:"source_node_id" json:"source_id"`
	TargetID  int64          `db:"target_node_id" json:"target_id"`
	Ambiguous bool           `db:"ambiguous" json:"ambiguous"`
	KindName  string         `db:"-" json:"kind"`
}

// Occurrence is one source location of an element.
type Occurrence struct {
	LocationID  int64              `db:"id" json:"location_id"`
	FileID      int64              `db:"file_node_id" json:"file_id"`
	Path        string             `db:"path" json:"path"`
	StartLine   int                `db:"start_line" json:"start_line"`
	StartColumn int                `db:"start_column" json:"start_column"`
	EndLine     int                `db:"end_line" json:"end_line"`
	EndColumn   int                `db:"end_column" json:"end_column"`
	Kind        types.LocationKind `db:"type" json:"-"`
	KindName    string             `db:"-" json:"kind"`
}

// File is a file row.
type File struct {
	ID               int64          `db:"id" json:"id"`
	Path             string         `db:"path" json:"path"`
	Language         string         `db:"language" json:"language"`
	ModificationTime sql.NullString `db:"modification_time" json:"-"`
	Indexed          bool           `db:"indexed" json:"indexed"`
	Complete         bool           `db:"complete" json:"complete"`
	LineCount        int            `db:"line_count" json:"line_count"`
}

// ErrorRow is a recorded analysis error.
type ErrorRow struct {
	ID      int64          `db:"id" json:"id"`
	Message string         `db:"message" json:"message"`
	Fatal   bool           `db:"fatal" json:"fatal"`
	Indexed bool           `db:"indexed" json:"indexed"`
	Path    sql.NullString `db:"path" json:"-"`
	Line    sql.NullInt64  `db:"start_line" json:"-"`
	Column  sql.NullInt64  `db:"start_column" json:"-"`
}

// Open opens the store at path for reading. The store must already exist.
func Open(ctx context.Context, path string) (*Reader, error) {
	exists, err := trail.Exists(path)
	if err != nil {
		return nil, err
	}
	path = trail.StorePath(path)
	if !exists {
		return nil, fmt.Errorf("store %s: %w", path, os.ErrNotExist)
	}

	db, err := sqlx.Open(storage.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// query_only is per connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}

	return &Reader{db: db, path: path}, nil
}

// Close releases the database handle.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Path returns the store file path.
func (r *Reader) Path() string {
	return r.path
}

// Ping checks that the store is reachable.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const nodeSelect = `
	SELECT n.id, n.type, n.serialized_name, s.definition_kind
	FROM node n
	LEFT JOIN symbol s ON s.id = n.id
`

// Node reads a node by id. ErrUnknownNode if absent.
func (r *Reader) Node(ctx context.Context, id int64) (*Node, error) {
	var node Node
	err := r.db.GetContext(ctx, &node, nodeSelect+" WHERE n.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, types.ErrUnknownNode)
	}
	if err != nil {
		return nil, fmt.Errorf("select node: %w", err)
	}
	if err := node.decode(); err != nil {
		return nil, err
	}
	return &node, nil
}

// NodesByName finds nodes whose own name is name, or whose qualified name is
// name when it contains delimiter. kind 0 matches every kind.
func (r *Reader) NodesByName(ctx context.Context, name, delimiter string, kind types.NodeKind, limit int) ([]Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrEmptyName
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if delimiter == "" {
		delimiter = namehierarchy.DefaultDelimiter
	}

	last := name
	if i := strings.LastIndex(name, delimiter); i >= 0 {
		last = name[i+len(delimiter):]
	}

	query := nodeSelect + " WHERE instr(n.serialized_name, ?) > 0"
	args := []interface{}{namehierarchy.ElementPattern(last)}
	if kind != 0 {
		query += " AND n.type = ?"
		args = append(args, int(kind))
	}
	query += " ORDER BY n.id"

	candidates := []Node{}
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("select nodes: %w", err)
	}

	nodes := make([]Node, 0, len(candidates))
	for _, node := range candidates {
		if err := node.decode(); err != nil {
			return nil, err
		}
		own, ok := node.Name.Last()
		if !ok {
			continue
		}
		if own.Name == name || node.Qualified == name {
			nodes = append(nodes, node)
			if len(nodes) == limit {
				break
			}
		}
	}
	return nodes, nil
}

func (n *Node) decode() error {
	name, err := namehierarchy.Deserialize(n.SerializedName)
	if err != nil {
		return fmt.Errorf("node %d: %w", n.ID, err)
	}
	n.Name = name
	n.Qualified = name.Qualified()
	n.KindName = n.Kind.String()
	n.Definition = types.DefinitionKind(n.DefinitionKind.Int64).String()
	return nil
}

const edgeSelect = `
	SELECT e.id, e.type, e.source_node_id, e.target_node_id,
		EXISTS (
			SELECT 1 FROM element_component c WHERE c.element_id = e.id AND c.type = ?
		) AS ambiguous
	FROM edge e
`

// Edge reads an edge by id. ErrUnknownReference if absent.
func (r *Reader) Edge(ctx context.Context, id int64) (*Edge, error) {
	var edge Edge
	err := r.db.GetContext(ctx, &edge, edgeSelect+" WHERE e.id = ?", int(types.ComponentAmbiguous), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edge %d: %w", id, types.ErrUnknownReference)
	}
	if err != nil {
		return nil, fmt.Errorf("select edge: %w", err)
	}
	edge.KindName = edge.Kind.String()
	return &edge, nil
}

// EdgesFrom lists edges leaving a node.
func (r *Reader) EdgesFrom(ctx context.Context, nodeID int64) ([]Edge, error) {
	return r.edges(ctx, "e.source_node_id", nodeID)
}

// EdgesTo lists edges entering a node.
func (r *Reader) EdgesTo(ctx context.Context, nodeID int64) ([]Edge, error) {
	return r.edges(ctx, "e.target_node_id", nodeID)
}

func (r *Reader) edges(ctx context.Context, column string, nodeID int64) ([]Edge, error) {
	edges := []Edge{}
	query := edgeSelect + " WHERE " + column + " = ? ORDER BY e.id"
	if err := r.db.SelectContext(ctx, &edges, query, int(types.ComponentAmbiguous), nodeID); err != nil {
		return nil, fmt.Errorf("select edges: %w", err)
	}
	for i := range edges {
		edges[i].KindName = edges[i].Kind.String()
	}
	return edges, nil
}

// IsAmbiguous reports whether an element was marked ambiguous.
func (r *Reader) IsAmbiguous(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM element_component WHERE element_id = ? AND type = ?",
		id, int(types.ComponentAmbiguous))
	if err != nil {
		return false, fmt.Errorf("select component: %w", err)
	}
	return n > 0, nil
}

// Occurrences lists the source locations of an element.
func (r *Reader) Occurrences(ctx context.Context, elementID int64) ([]Occurrence, error) {
	query := `
		SELECT sl.id, sl.file_node_id, f.path, sl.start_line, sl.start_column,
			sl.end_line, sl.end_column, sl.type
		FROM occurrence o
		JOIN source_location sl ON sl.id = o.source_location_id
		JOIN file f ON f.id = sl.file_node_id
		WHERE o.element_id = ?
		ORDER BY f.path, sl.start_line, sl.start_column, sl.id
	`
	occurrences := []Occurrence{}
	if err := r.db.SelectContext(ctx, &occurrences, query, elementID); err != nil {
		return nil, fmt.Errorf("select occurrences: %w", err)
	}
	for i := range occurrences {
		occurrences[i].KindName = occurrences[i].Kind.String()
	}
	return occurrences, nil
}

const fileSelect = `SELECT id, path, language, modification_time, indexed, complete, line_count FROM file`

// FileByPath reads a file by path. ErrUnknownFile if absent.
func (r *Reader) FileByPath(ctx context.Context, path string) (*File, error) {
	var file File
	err := r.db.GetContext(ctx, &file, fileSelect+" WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %q: %w", path, types.ErrUnknownFile)
	}
	if err != nil {
		return nil, fmt.Errorf("select file: %w", err)
	}
	return &file, nil
}

// Files lists every recorded file ordered by path.
func (r *Reader) Files(ctx context.Context) ([]File, error) {
	files := []File{}
	if err := r.db.SelectContext(ctx, &files, fileSelect+" ORDER BY path"); err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	return files, nil
}

// Errors lists recorded analysis errors, fatal ones first.
func (r *Reader) Errors(ctx context.Context) ([]ErrorRow, error) {
	query := `
		SELECT e.id, e.message, e.fatal, e.indexed, f.path, e.start_line, e.start_column
		FROM error e
		LEFT JOIN file f ON f.id = e.file_id
		ORDER BY e.fatal DESC, e.id
	`
	rows := []ErrorRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select errors: %w", err)
	}
	return rows, nil
}
