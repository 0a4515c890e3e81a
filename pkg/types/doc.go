// Package types provides shared type definitions for the trailstore code-intelligence store.
//
// This package defines the closed enumerations persisted in the store (node,
// edge, definition, location, access and element kinds), source ranges, the
// sentinel errors returned by recording operations and the edge legality table.
//
// # Kinds
//
// Node and edge kinds are bit flags. The numeric values are part of the on-disk
// format read by the viewer and must never be renumbered:
//
//	types.NodeClass    // 128
//	types.NodeMethod   // 8192
//	types.EdgeCall     // 8
//
// Container kinds (module, namespace, package) may be recorded more than once
// under the same qualified name; every other kind is unique per name.
//
// # Edge Legality
//
// Which node kinds may sit at either end of an edge is defined once, in a static
// table keyed by edge kind:
//
//	if err := types.CheckEdge(types.EdgeInheritance, types.NodeClass, types.NodeFunction); err != nil {
//	    // errors.Is(err, types.ErrIllegalEdge) == true
//	}
//
// # Ranges
//
// Ranges are 1-based and inclusive at both ends. A range whose start lies after
// its end is rejected with ErrInvalidRange; it is never swapped.
package types
