package trail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/pkg/namehierarchy"
	"github.com/dshills/trailstore/pkg/types"
)

// Node is a recorded node with its decoded name.
type Node struct {
	ID         int64
	Kind       types.NodeKind
	Name       namehierarchy.NameHierarchy
	Definition types.DefinitionKind
}

// RecordNode records a node named hierarchy. When parentID is not 0 the stored
// name is the parent's name extended with hierarchy, using the parent's
// delimiter.
//
// Symbol kinds get a symbol row carrying definition; DefinitionNone records a
// node that is referenced but not defined. Container kinds are idempotent and
// return the existing id for a name already recorded. Any other kind fails
// with ErrDuplicateName.
func (db *DB) RecordNode(ctx context.Context, kind types.NodeKind, hierarchy namehierarchy.NameHierarchy, parentID int64, definition types.DefinitionKind) (int64, error) {
	var id int64
	err := db.write(ctx, "node", func(tx *storage.Tx) error {
		var err error
		id, err = db.recordNode(ctx, tx, kind, hierarchy, parentID, definition)
		return err
	})
	return id, err
}

func (db *DB) recordNode(ctx context.Context, tx *storage.Tx, kind types.NodeKind, hierarchy namehierarchy.NameHierarchy, parentID int64, definition types.DefinitionKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("node kind %d: %w", kind, types.ErrInvalidKind)
	}
	if kind == types.NodeFile {
		return 0, fmt.Errorf("file nodes are recorded with RecordFile: %w", types.ErrInvalidKind)
	}
	if definition != types.DefinitionNone && !definition.Valid() {
		return 0, fmt.Errorf("definition kind %d: %w", definition, types.ErrInvalidKind)
	}
	if hierarchy.Len() == 0 {
		return 0, types.ErrEmptyName
	}
	if hierarchy.Delimiter == "" {
		hierarchy.Delimiter = namehierarchy.DefaultDelimiter
	}

	name := hierarchy
	if parentID != 0 {
		parent, err := tx.GetNode(ctx, parentID)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("parent %d: %w", parentID, types.ErrUnknownNode)
		}
		if err != nil {
			return 0, err
		}
		parentName, err := namehierarchy.Deserialize(parent.SerializedName)
		if err != nil {
			return 0, fmt.Errorf("parent %d: %w", parentID, err)
		}
		name = parentName.Extend(hierarchy)
	}
	serialized := namehierarchy.Serialize(name)

	existing, err := tx.FindNode(ctx, kind, serialized)
	switch {
	case err == nil:
		if kind.IsContainer() {
			return existing, nil
		}
		return 0, fmt.Errorf("%s %q: %w", kind, name.Qualified(), types.ErrDuplicateName)
	case !errors.Is(err, storage.ErrNotFound):
		return 0, err
	}

	id := db.ids.Next()
	if err := tx.InsertElement(ctx, id, types.ElementNode); err != nil {
		return 0, err
	}
	if err := tx.InsertNode(ctx, &storage.Node{ID: id, Kind: kind, SerializedName: serialized}); err != nil {
		return 0, err
	}
	if kind.HasSymbol() && definition != types.DefinitionNone {
		if err := tx.InsertSymbol(ctx, id, definition); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Node reads back a recorded node. ErrUnknownNode if id is not a node.
func (db *DB) Node(ctx context.Context, id int64) (*Node, error) {
	var node *Node
	err := db.read(func(tx *storage.Tx) error {
		row, err := tx.GetNode(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("node %d: %w", id, types.ErrUnknownNode)
		}
		if err != nil {
			return err
		}
		name, err := namehierarchy.Deserialize(row.SerializedName)
		if err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}
		def, err := tx.GetSymbol(ctx, id)
		if err != nil {
			return err
		}
		node = &Node{ID: row.ID, Kind: row.Kind, Name: name, Definition: def}
		return nil
	})
	return node, err
}

// recordNamed records a single-element node with an explicit definition.
func (db *DB) recordNamed(ctx context.Context, kind types.NodeKind, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.RecordNode(ctx, kind, namehierarchy.New(namehierarchy.DefaultDelimiter, element), parentID, types.DefinitionExplicit)
}

// RecordSymbol records a generic symbol whose kind is not known.
func (db *DB) RecordSymbol(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.RecordNode(ctx, types.NodeSymbol, namehierarchy.New(namehierarchy.DefaultDelimiter, element), parentID, types.DefinitionNone)
}

// RecordType records a type of unspecified flavor.
func (db *DB) RecordType(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeType, element, parentID)
}

// RecordBuiltinType records a language builtin type.
func (db *DB) RecordBuiltinType(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeBuiltinType, element, parentID)
}

// RecordModule records a module container.
func (db *DB) RecordModule(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeModule, element, parentID)
}

// RecordNamespace records a namespace container.
func (db *DB) RecordNamespace(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeNamespace, element, parentID)
}

// RecordPackage records a package container.
func (db *DB) RecordPackage(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodePackage, element, parentID)
}

// RecordStruct records a struct.
func (db *DB) RecordStruct(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeStruct, element, parentID)
}

// RecordClass records a class.
func (db *DB) RecordClass(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeClass, element, parentID)
}

// RecordInterface records an interface.
func (db *DB) RecordInterface(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeInterface, element, parentID)
}

// RecordAnnotation records an annotation type.
func (db *DB) RecordAnnotation(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeAnnotation, element, parentID)
}

// RecordGlobalVariable records a global variable.
func (db *DB) RecordGlobalVariable(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeGlobalVariable, element, parentID)
}

// RecordField records a field of its parent type.
func (db *DB) RecordField(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeField, element, parentID)
}

// RecordFunction records a free function.
func (db *DB) RecordFunction(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeFunction, element, parentID)
}

// RecordMethod records a method of its parent type.
func (db *DB) RecordMethod(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeMethod, element, parentID)
}

// RecordEnum records an enum.
func (db *DB) RecordEnum(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeEnum, element, parentID)
}

// RecordEnumConstant records an enum constant.
func (db *DB) RecordEnumConstant(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeEnumConstant, element, parentID)
}

// RecordTypedef records a type alias.
func (db *DB) RecordTypedef(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeTypedef, element, parentID)
}

// RecordTypeParameter records a template or generic type parameter.
func (db *DB) RecordTypeParameter(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeTypeParameter, element, parentID)
}

// RecordMacro records a preprocessor macro.
func (db *DB) RecordMacro(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeMacro, element, parentID)
}

// RecordUnion records a union.
func (db *DB) RecordUnion(ctx context.Context, element namehierarchy.NameElement, parentID int64) (int64, error) {
	return db.recordNamed(ctx, types.NodeUnion, element, parentID)
}

// RecordLocalSymbol records a function-local identifier. Every call allocates
// a new id; names need not be unique.
func (db *DB) RecordLocalSymbol(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.write(ctx, "local_symbol", func(tx *storage.Tx) error {
		if name == "" {
			return types.ErrEmptyName
		}
		id = db.ids.Next()
		if err := tx.InsertElement(ctx, id, types.ElementLocalSymbol); err != nil {
			return err
		}
		return tx.InsertLocalSymbol(ctx, &storage.LocalSymbol{ID: id, Name: name})
	})
	return id, err
}

// RecordAccess records the visibility of a node. Recording the same value
// again is a no-op; a different value fails with ErrAccessConflict.
func (db *DB) RecordAccess(ctx context.Context, nodeID int64, access types.AccessKind) error {
	return db.write(ctx, "access", func(tx *storage.Tx) error {
		if !access.Valid() {
			return fmt.Errorf("access kind %d: %w", access, types.ErrInvalidKind)
		}
		if _, err := tx.GetNode(ctx, nodeID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("node %d: %w", nodeID, types.ErrUnknownNode)
			}
			return err
		}

		current, err := tx.GetAccess(ctx, nodeID)
		switch {
		case err == nil && current == access:
			return nil
		case err == nil:
			return fmt.Errorf("node %d is %s, not %s: %w", nodeID, current, access, types.ErrAccessConflict)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return tx.InsertAccess(ctx, nodeID, access)
	})
}
