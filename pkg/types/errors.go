package types

import "errors"

// Integrity errors: the offending recording is rejected before any row is written.
var (
	ErrUnknownNode      = errors.New("unknown node")
	ErrUnknownFile      = errors.New("unknown file")
	ErrUnknownElement   = errors.New("unknown element")
	ErrUnknownReference = errors.New("unknown reference")
	ErrIllegalEdge      = errors.New("illegal edge")
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrEmptyName        = errors.New("name hierarchy is empty")
)

// Duplicate errors.
var (
	ErrDuplicateName  = errors.New("duplicate name")
	ErrAccessConflict = errors.New("conflicting access already recorded")
)

// Lifecycle errors.
var (
	ErrStoreClosed   = errors.New("store is closed")
	ErrAlreadyExists = errors.New("store already exists")
	ErrNotFound      = errors.New("not found")
)
