// Package namehierarchy models qualified, hierarchical symbol names and their
// reversible string serialization.
//
// A NameHierarchy is an ordered list of NameElements, outermost scope first,
// plus the scope delimiter of the source language ("::" for C++, "." for Java).
// Each element carries an optional prefix and postfix, typically a return type
// and a parameter list:
//
//	h := namehierarchy.New("::",
//	    namehierarchy.NameElement{Name: "MyMainClass"},
//	    namehierarchy.NameElement{Prefix: "void", Name: "main", Postfix: "()"},
//	)
//	h.Qualified() // "MyMainClass::main"
//
// # Serialized Form
//
// Serialize produces the string stored in the node table and read by the
// viewer. It is the binding on-disk contract of this package:
//
//	esc(delimiter) "\tm" count { "\tn" esc(name) "\ts" esc(prefix) "\tp" esc(postfix) }
//
// The escape rule replaces `\` with `\\` and TAB with `\t`, so after escaping a
// field never contains a raw TAB and every TAB in the output starts a marker.
// Deserialize reverses the process and rejects input with a missing tag, a
// wrong element count, an element that does not split into exactly three parts
// or an unknown escape, always wrapping ErrMalformedName.
//
// Round trip is exact for every hierarchy, including the empty one:
//
//	got, _ := namehierarchy.Deserialize(namehierarchy.Serialize(h))
//	got.Equal(h) // true
package namehierarchy
