package storage

import (
	"github.com/dshills/trailstore/pkg/types"
)

// ErrNotFound is returned when a requested row doesn't exist
var ErrNotFound = types.ErrNotFound

// Node is a row of the node table.
type Node struct {
	ID             int64
	Kind           types.NodeKind
	SerializedName string
}

// Edge is a row of the edge table.
type Edge struct {
	ID       int64
	Kind     types.EdgeKind
	SourceID int64
	TargetID int64
}

// File is a row of the file table.
type File struct {
	ID               int64
	Path             string
	Language         string
	ModificationTime string
	Indexed          bool
	Complete         bool
	LineCount        int
}

// LocalSymbol is a row of the local_symbol table.
type LocalSymbol struct {
	ID   int64
	Name string
}

// SourceLocation is a row of the source_location table.
type SourceLocation struct {
	ID     int64
	FileID int64
	Range  types.Range
	Kind   types.LocationKind
}

// ErrorRecord is a row of the error table. FileID is 0 when the error is not
// tied to a file.
type ErrorRecord struct {
	ID      int64
	Message string
	Fatal   bool
	Indexed bool
	FileID  int64
	Range   types.Range
}
