package trail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/trailstore/pkg/types"
)

func TestRecordEdge(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	caller, err := db.RecordFunction(ctx, named("caller"), 0)
	require.NoError(t, err)
	callee, err := db.RecordFunction(ctx, named("callee"), 0)
	require.NoError(t, err)

	id, err := db.RecordCall(ctx, caller, callee)
	require.NoError(t, err)

	edge, err := db.Edge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.EdgeCall, edge.Kind)
	assert.Equal(t, caller, edge.SourceID)
	assert.Equal(t, callee, edge.TargetID)

	// The same relation is recorded once
	again, err := db.RecordCall(ctx, caller, callee)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, countRows(t, db, "edge"))
}

func TestRecordEdge_Integrity(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	class, err := db.RecordClass(ctx, named("A"), 0)
	require.NoError(t, err)
	field, err := db.RecordField(ctx, named("x"), class)
	require.NoError(t, err)
	fileA, err := db.RecordFile(ctx, "a.h", true)
	require.NoError(t, err)
	fileB, err := db.RecordFile(ctx, "b.h", true)
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    types.EdgeKind
		src     int64
		dst     int64
		wantErr error
	}{
		{"unknown source", types.EdgeUsage, 99, field, types.ErrUnknownNode},
		{"unknown target", types.EdgeUsage, class, 99, types.ErrUnknownNode},
		{"unknown kind", types.EdgeKind(3), class, field, types.ErrInvalidKind},
		{"field cannot inherit", types.EdgeInheritance, field, class, types.ErrIllegalEdge},
		{"class cannot include", types.EdgeInclude, class, fileA, types.ErrIllegalEdge},
		{"call into field", types.EdgeCall, class, field, types.ErrIllegalEdge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.RecordEdge(ctx, tt.kind, tt.src, tt.dst)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, countRows(t, db, "edge"))

	var ruleErr *types.EdgeRuleError
	_, err = db.RecordInheritance(ctx, field, class)
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, types.NodeField, ruleErr.Source)
	assert.Equal(t, types.NodeClass, ruleErr.Target)

	_, err = db.RecordInclude(ctx, fileA, fileB)
	assert.NoError(t, err)
	_, err = db.RecordMember(ctx, class, field)
	assert.NoError(t, err)
}

func TestEdge_Unknown(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	class, err := db.RecordClass(ctx, named("A"), 0)
	require.NoError(t, err)

	_, err = db.Edge(ctx, class)
	assert.ErrorIs(t, err, types.ErrUnknownReference)
}
