package namehierarchy

import "strings"

// DefaultDelimiter is the language-agnostic scope delimiter.
const DefaultDelimiter = "::"

// NameElement is one scope level of a qualified name, e.g. the method name
// "main" with prefix "static void" and postfix "(String[])".
type NameElement struct {
	Prefix  string
	Name    string
	Postfix string
}

// NameHierarchy is an ordered chain of name elements from the outermost scope
// to the symbol itself, plus the delimiter the source language uses between
// scopes.
type NameHierarchy struct {
	Delimiter string
	Elements  []NameElement
}

// New creates a hierarchy using delimiter and the given elements.
func New(delimiter string, elements ...NameElement) NameHierarchy {
	h := NameHierarchy{Delimiter: delimiter}
	if len(elements) > 0 {
		h.Elements = append([]NameElement(nil), elements...)
	}
	return h
}

// Named creates a single-element hierarchy with the default delimiter.
func Named(name string) NameHierarchy {
	return New(DefaultDelimiter, NameElement{Name: name})
}

// Len returns the number of elements.
func (h NameHierarchy) Len() int {
	return len(h.Elements)
}

// Push appends an element to the hierarchy.
func (h *NameHierarchy) Push(e NameElement) {
	h.Elements = append(h.Elements, e)
}

// Extend returns a copy of h with the elements of child appended. The
// delimiter of h wins.
func (h NameHierarchy) Extend(child NameHierarchy) NameHierarchy {
	out := NameHierarchy{Delimiter: h.Delimiter}
	if n := len(h.Elements) + len(child.Elements); n > 0 {
		out.Elements = make([]NameElement, 0, n)
		out.Elements = append(out.Elements, h.Elements...)
		out.Elements = append(out.Elements, child.Elements...)
	}
	return out
}

// Last returns the innermost element. ok is false for an empty hierarchy.
func (h NameHierarchy) Last() (e NameElement, ok bool) {
	if len(h.Elements) == 0 {
		return NameElement{}, false
	}
	return h.Elements[len(h.Elements)-1], true
}

// Qualified returns the display form of the name, e.g. "MyMainClass::main".
// Prefixes and postfixes are not included.
func (h NameHierarchy) Qualified() string {
	names := make([]string, len(h.Elements))
	for i, e := range h.Elements {
		names[i] = e.Name
	}
	return strings.Join(names, h.Delimiter)
}

// Equal reports whether h and o have the same delimiter and elements.
func (h NameHierarchy) Equal(o NameHierarchy) bool {
	if h.Delimiter != o.Delimiter || len(h.Elements) != len(o.Elements) {
		return false
	}
	for i := range h.Elements {
		if h.Elements[i] != o.Elements[i] {
			return false
		}
	}
	return true
}
