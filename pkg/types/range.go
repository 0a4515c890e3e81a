package types

import "fmt"

// Position represents a location in source code. Lines and columns are 1-based.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p comes strictly before o in document order.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is an inclusive text range.
type Range struct {
	Start Position
	End   Position
}

// NewRange builds a Range from its four coordinates.
func NewRange(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// Validate rejects ranges with non-positive coordinates or a start after the end.
func (r Range) Validate() error {
	if r.Start.Line <= 0 || r.Start.Column <= 0 || r.End.Line <= 0 || r.End.Column <= 0 {
		return fmt.Errorf("%w: coordinates must be positive, got %s", ErrInvalidRange, r)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: start %d:%d is after end %d:%d", ErrInvalidRange,
			r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}
