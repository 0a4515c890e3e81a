package types

import (
	"fmt"
	"strings"
)

// NodeKind is the kind of a symbol-bearing node. Values are bit flags so that
// sets of kinds can be expressed as masks; the numeric values are persisted and
// must not change.
type NodeKind int

const (
	NodeSymbol         NodeKind = 1 << 0
	NodeType           NodeKind = 1 << 1
	NodeBuiltinType    NodeKind = 1 << 2
	NodeModule         NodeKind = 1 << 3
	NodeNamespace      NodeKind = 1 << 4
	NodePackage        NodeKind = 1 << 5
	NodeStruct         NodeKind = 1 << 6
	NodeClass          NodeKind = 1 << 7
	NodeInterface      NodeKind = 1 << 8
	NodeAnnotation     NodeKind = 1 << 9
	NodeGlobalVariable NodeKind = 1 << 10
	NodeField          NodeKind = 1 << 11
	NodeFunction       NodeKind = 1 << 12
	NodeMethod         NodeKind = 1 << 13
	NodeEnum           NodeKind = 1 << 14
	NodeEnumConstant   NodeKind = 1 << 15
	NodeTypedef        NodeKind = 1 << 16
	NodeTypeParameter  NodeKind = 1 << 17
	NodeFile           NodeKind = 1 << 18
	NodeMacro          NodeKind = 1 << 19
	NodeUnion          NodeKind = 1 << 20
)

var nodeKindNames = map[NodeKind]string{
	NodeSymbol:         "symbol",
	NodeType:           "type",
	NodeBuiltinType:    "builtin_type",
	NodeModule:         "module",
	NodeNamespace:      "namespace",
	NodePackage:        "package",
	NodeStruct:         "struct",
	NodeClass:          "class",
	NodeInterface:      "interface",
	NodeAnnotation:     "annotation",
	NodeGlobalVariable: "global_variable",
	NodeField:          "field",
	NodeFunction:       "function",
	NodeMethod:         "method",
	NodeEnum:           "enum",
	NodeEnumConstant:   "enum_constant",
	NodeTypedef:        "typedef",
	NodeTypeParameter:  "type_parameter",
	NodeFile:           "file",
	NodeMacro:          "macro",
	NodeUnion:          "union",
}

// NodeKinds returns every node kind in ascending order.
func NodeKinds() []NodeKind {
	kinds := make([]NodeKind, 0, len(nodeKindNames))
	for k := NodeSymbol; k <= NodeUnion; k <<= 1 {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("node_kind(%d)", int(k))
}

// Valid reports whether k is exactly one member of the closed kind set.
func (k NodeKind) Valid() bool {
	_, ok := nodeKindNames[k]
	return ok
}

// IsContainer reports whether nodes of this kind may be re-recorded under the
// same qualified name, returning the existing node.
func (k NodeKind) IsContainer() bool {
	return k&containerKinds != 0
}

// HasSymbol reports whether nodes of this kind carry a definition record.
func (k NodeKind) HasSymbol() bool {
	return k.Valid() && k&nonSymbolKinds == 0
}

// ParseNodeKind converts a lower-case kind name ("class", "method", ...) to a
// NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range nodeKindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// EdgeKind is the kind of a directed relationship between two nodes.
type EdgeKind int

const (
	EdgeMember                 EdgeKind = 1 << 0
	EdgeTypeUsage              EdgeKind = 1 << 1
	EdgeUsage                  EdgeKind = 1 << 2
	EdgeCall                   EdgeKind = 1 << 3
	EdgeInheritance            EdgeKind = 1 << 4
	EdgeOverride               EdgeKind = 1 << 5
	EdgeTypeArgument           EdgeKind = 1 << 6
	EdgeTemplateSpecialization EdgeKind = 1 << 7
	EdgeInclude                EdgeKind = 1 << 8
	EdgeImport                 EdgeKind = 1 << 9
	EdgeMacroUsage             EdgeKind = 1 << 10
	EdgeAnnotationUsage        EdgeKind = 1 << 11
)

var edgeKindNames = map[EdgeKind]string{
	EdgeMember:                 "member",
	EdgeTypeUsage:              "type_usage",
	EdgeUsage:                  "usage",
	EdgeCall:                   "call",
	EdgeInheritance:            "inheritance",
	EdgeOverride:               "override",
	EdgeTypeArgument:           "type_argument",
	EdgeTemplateSpecialization: "template_specialization",
	EdgeInclude:                "include",
	EdgeImport:                 "import",
	EdgeMacroUsage:             "macro_usage",
	EdgeAnnotationUsage:        "annotation_usage",
}

func (k EdgeKind) String() string {
	if name, ok := edgeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("edge_kind(%d)", int(k))
}

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	_, ok := edgeKindNames[k]
	return ok
}

// ParseEdgeKind converts a lower-case edge name ("call", "usage", ...) to an
// EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range edgeKindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown edge kind %q", s)
}

// DefinitionKind describes how a symbol came to be known.
type DefinitionKind int

const (
	// DefinitionNone is used for nodes that carry no symbol row.
	DefinitionNone     DefinitionKind = 0
	DefinitionImplicit DefinitionKind = 1
	DefinitionExplicit DefinitionKind = 2
	DefinitionIndexed  DefinitionKind = 3
)

func (k DefinitionKind) String() string {
	switch k {
	case DefinitionNone:
		return "none"
	case DefinitionImplicit:
		return "implicit"
	case DefinitionExplicit:
		return "explicit"
	case DefinitionIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("definition_kind(%d)", int(k))
	}
}

// Valid reports whether k may be stored on a symbol row.
func (k DefinitionKind) Valid() bool {
	return k == DefinitionImplicit || k == DefinitionExplicit || k == DefinitionIndexed
}

// ParseDefinitionKind converts "explicit", "implicit", "indexed" (or "") to a
// DefinitionKind. The empty string means explicit.
func ParseDefinitionKind(s string) (DefinitionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "explicit":
		return DefinitionExplicit, nil
	case "implicit":
		return DefinitionImplicit, nil
	case "indexed":
		return DefinitionIndexed, nil
	default:
		return DefinitionNone, fmt.Errorf("unknown definition kind %q", s)
	}
}

// LocationKind tags how a source range relates to the element it is attached to.
type LocationKind int

const (
	LocationToken       LocationKind = 0
	LocationScope       LocationKind = 1
	LocationQualifier   LocationKind = 2
	LocationLocalSymbol LocationKind = 3
	LocationSignature   LocationKind = 4
	LocationAtomicRange LocationKind = 5
)

func (k LocationKind) String() string {
	switch k {
	case LocationToken:
		return "token"
	case LocationScope:
		return "scope"
	case LocationQualifier:
		return "qualifier"
	case LocationLocalSymbol:
		return "local_symbol"
	case LocationSignature:
		return "signature"
	case LocationAtomicRange:
		return "atomic_range"
	default:
		return fmt.Sprintf("location_kind(%d)", int(k))
	}
}

// Valid reports whether k is a known location kind.
func (k LocationKind) Valid() bool {
	return k >= LocationToken && k <= LocationAtomicRange
}

// ParseLocationKind converts a lower-case location kind name to a LocationKind.
// The empty string means token.
func ParseLocationKind(s string) (LocationKind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return LocationToken, nil
	}
	for k := LocationToken; k <= LocationAtomicRange; k++ {
		if k.String() == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown location kind %q", s)
}

// AccessKind is the visibility annotation of a node.
type AccessKind int

const (
	AccessPublic    AccessKind = 1
	AccessProtected AccessKind = 2
	AccessPrivate   AccessKind = 4
	AccessDefault   AccessKind = 8
)

func (k AccessKind) String() string {
	switch k {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	case AccessDefault:
		return "default"
	default:
		return fmt.Sprintf("access_kind(%d)", int(k))
	}
}

// Valid reports whether k is a known access kind.
func (k AccessKind) Valid() bool {
	switch k {
	case AccessPublic, AccessProtected, AccessPrivate, AccessDefault:
		return true
	}
	return false
}

// ParseAccessKind converts a lower-case access name to an AccessKind.
func ParseAccessKind(s string) (AccessKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return AccessPublic, nil
	case "protected":
		return AccessProtected, nil
	case "private":
		return AccessPrivate, nil
	case "default":
		return AccessDefault, nil
	default:
		return 0, fmt.Errorf("unknown access kind %q", s)
	}
}

// ComponentKind flags an element after it was recorded.
type ComponentKind int

const (
	ComponentAmbiguous ComponentKind = 1
	// ComponentUnsolved tags the placeholder node unresolved references
	// point at.
	ComponentUnsolved ComponentKind = 2
)

// ElementKind tags which variant table refines an element row.
type ElementKind int

const (
	ElementNode        ElementKind = 1
	ElementEdge        ElementKind = 2
	ElementFile        ElementKind = 3
	ElementLocalSymbol ElementKind = 4
	ElementError       ElementKind = 5
)

func (k ElementKind) String() string {
	switch k {
	case ElementNode:
		return "node"
	case ElementEdge:
		return "edge"
	case ElementFile:
		return "file"
	case ElementLocalSymbol:
		return "local_symbol"
	case ElementError:
		return "error"
	default:
		return fmt.Sprintf("element_kind(%d)", int(k))
	}
}
