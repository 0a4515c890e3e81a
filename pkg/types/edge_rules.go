package types

import "fmt"

// Node kind groups used by the edge legality table.
const (
	containerKinds = NodeModule | NodeNamespace | NodePackage
	nonSymbolKinds = containerKinds | NodeFile | NodeSymbol

	typeLikeKinds = NodeType | NodeBuiltinType | NodeStruct | NodeClass | NodeInterface |
		NodeAnnotation | NodeEnum | NodeTypedef | NodeTypeParameter | NodeUnion
	callableKinds = NodeFunction | NodeMethod | NodeMacro
	variableKinds = NodeGlobalVariable | NodeField | NodeEnumConstant

	allKinds         = NodeUnion<<1 - 1
	symbolBearing    = allKinds &^ NodeFile
	inheritableKinds = typeLikeKinds &^ (NodeTypeParameter | NodeBuiltinType)
)

// EdgeRule lists the node kinds allowed at each end of an edge kind.
type EdgeRule struct {
	Sources NodeKind
	Targets NodeKind
}

// edgeRules is the single place where edge legality is defined.
var edgeRules = map[EdgeKind]EdgeRule{
	EdgeMember:                 {Sources: containerKinds | typeLikeKinds | callableKinds | NodeFile, Targets: symbolBearing},
	EdgeTypeUsage:              {Sources: symbolBearing, Targets: typeLikeKinds | NodeSymbol},
	EdgeUsage:                  {Sources: symbolBearing, Targets: symbolBearing},
	EdgeCall:                   {Sources: callableKinds | variableKinds | NodeSymbol, Targets: callableKinds | typeLikeKinds | NodeSymbol},
	EdgeInheritance:            {Sources: inheritableKinds, Targets: typeLikeKinds | NodeSymbol},
	EdgeOverride:               {Sources: callableKinds, Targets: callableKinds},
	EdgeTypeArgument:           {Sources: typeLikeKinds | callableKinds, Targets: typeLikeKinds | NodeSymbol},
	EdgeTemplateSpecialization: {Sources: typeLikeKinds | callableKinds, Targets: typeLikeKinds | callableKinds},
	EdgeInclude:                {Sources: NodeFile, Targets: NodeFile},
	EdgeImport:                 {Sources: NodeFile | containerKinds, Targets: allKinds},
	EdgeMacroUsage:             {Sources: allKinds, Targets: NodeMacro},
	EdgeAnnotationUsage:        {Sources: symbolBearing, Targets: NodeAnnotation},
}

// RuleFor returns the legality rule for an edge kind.
func RuleFor(kind EdgeKind) (EdgeRule, bool) {
	rule, ok := edgeRules[kind]
	return rule, ok
}

// CheckEdge validates that an edge of the given kind may connect a source node
// of kind src to a target node of kind dst.
func CheckEdge(kind EdgeKind, src, dst NodeKind) error {
	if err := CheckEdgeSource(kind, src); err != nil {
		return err
	}
	rule := edgeRules[kind]
	if !dst.Valid() || rule.Targets&dst == 0 {
		return &EdgeRuleError{Kind: kind, Source: src, Target: dst}
	}
	return nil
}

// CheckEdgeSource validates only the source end of an edge. It is used for
// references whose target could not be resolved.
func CheckEdgeSource(kind EdgeKind, src NodeKind) error {
	rule, ok := edgeRules[kind]
	if !ok {
		return &EdgeRuleError{Kind: kind, Source: src}
	}
	if !src.Valid() || rule.Sources&src == 0 {
		return &EdgeRuleError{Kind: kind, Source: src}
	}
	return nil
}

// EdgeRuleError reports an edge whose kind does not allow its endpoint kinds.
type EdgeRuleError struct {
	Kind   EdgeKind
	Source NodeKind
	Target NodeKind // zero when only the source was checked
}

func (e *EdgeRuleError) Error() string {
	if !e.Kind.Valid() {
		return fmt.Sprintf("illegal edge: unknown edge kind %d", int(e.Kind))
	}
	if e.Target == 0 {
		return fmt.Sprintf("illegal edge: %s may not start at a %s node", e.Kind, e.Source)
	}
	return fmt.Sprintf("illegal edge: %s from %s to %s", e.Kind, e.Source, e.Target)
}

func (e *EdgeRuleError) Unwrap() error {
	return ErrIllegalEdge
}
