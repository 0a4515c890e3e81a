package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/trailstore/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func beginTestTx(t *testing.T, s *SQLiteStorage) *Tx {
	tx, err := s.BeginTx(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

// insertTestNode writes the element and node rows for id.
func insertTestNode(t *testing.T, tx *Tx, id int64, kind types.NodeKind, name string) {
	ctx := context.Background()
	require.NoError(t, tx.InsertElement(ctx, id, types.ElementNode))
	require.NoError(t, tx.InsertNode(ctx, &Node{ID: id, Kind: kind, SerializedName: name}))
}

// insertTestFile writes a file with its FILE node.
func insertTestFile(t *testing.T, tx *Tx, id int64, path string) {
	insertTestNode(t, tx, id, types.NodeFile, path)
	require.NoError(t, tx.InsertFile(context.Background(), &File{ID: id, Path: path}))
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)

	assert.NotNil(t, storage.db)
	assert.Equal(t, ":memory:", storage.Path())
}

func TestClose(t *testing.T) {
	storage, err := NewSQLiteStorage(context.Background(), ":memory:")
	require.NoError(t, err)
	assert.NoError(t, storage.Close())
}

func TestMigrations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	version, err := SchemaVersion(ctx, storage.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	// Applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, storage.DB()))
	version, err = SchemaVersion(ctx, storage.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	require.NoError(t, RollbackMigration(ctx, storage.DB()))
	version, err = SchemaVersion(ctx, storage.DB())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	require.NoError(t, RollbackMigration(ctx, storage.DB()))
	version, err = SchemaVersion(ctx, storage.DB())
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version)

	assert.Error(t, RollbackMigration(ctx, storage.DB()))
}

func TestMeta(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx := beginTestTx(t, storage)
	_, err := tx.GetMeta(ctx, "storage_version")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tx.PutMeta(ctx, "storage_version", "24"))
	require.NoError(t, tx.PutMeta(ctx, "storage_version", StorageVersion))
	require.NoError(t, tx.Commit())

	value, err := storage.GetMeta(ctx, "storage_version")
	require.NoError(t, err)
	assert.Equal(t, StorageVersion, value)
}

func TestNodeRows(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestNode(t, tx, 1, types.NodeClass, "::\tmA\ts\tp")
	require.NoError(t, tx.InsertSymbol(ctx, 1, types.DefinitionExplicit))

	node, err := tx.GetNode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.NodeClass, node.Kind)
	assert.Equal(t, "::\tmA\ts\tp", node.SerializedName)

	kind, err := tx.ElementKind(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.ElementNode, kind)

	id, err := tx.FindNode(ctx, types.NodeClass, "::\tmA\ts\tp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = tx.FindNode(ctx, types.NodeStruct, "::\tmA\ts\tp")
	assert.ErrorIs(t, err, ErrNotFound)

	def, err := tx.GetSymbol(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.DefinitionExplicit, def)

	_, err = tx.GetNode(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	def, err = tx.GetSymbol(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, types.DefinitionNone, def)

	// Node rows need their element row
	err = tx.InsertNode(ctx, &Node{ID: 42, Kind: types.NodeClass, SerializedName: "x"})
	assert.Error(t, err)
}

func TestEdgeRows(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestNode(t, tx, 1, types.NodeFunction, "f")
	insertTestNode(t, tx, 2, types.NodeFunction, "g")
	require.NoError(t, tx.InsertElement(ctx, 3, types.ElementEdge))
	require.NoError(t, tx.InsertEdge(ctx, &Edge{ID: 3, Kind: types.EdgeCall, SourceID: 1, TargetID: 2}))

	edge, err := tx.GetEdge(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, types.EdgeCall, edge.Kind)
	assert.Equal(t, int64(1), edge.SourceID)
	assert.Equal(t, int64(2), edge.TargetID)

	// Dangling target is rejected by the foreign key
	require.NoError(t, tx.InsertElement(ctx, 4, types.ElementEdge))
	err = tx.InsertEdge(ctx, &Edge{ID: 4, Kind: types.EdgeCall, SourceID: 1, TargetID: 77})
	assert.Error(t, err)
}

func TestComponentRows(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestNode(t, tx, 1, types.NodeField, "x")
	require.NoError(t, tx.InsertAccess(ctx, 1, types.AccessPrivate))
	access, err := tx.GetAccess(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.AccessPrivate, access)

	_, err = tx.GetAccess(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	has, err := tx.HasComponent(ctx, 1, types.ComponentAmbiguous)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, tx.InsertComponent(ctx, 1, types.ComponentAmbiguous, ""))
	require.NoError(t, tx.InsertComponent(ctx, 1, types.ComponentAmbiguous, ""))

	has, err = tx.HasComponent(ctx, 1, types.ComponentAmbiguous)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestUnsolvedComponent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	_, err := tx.FindComponent(ctx, types.ComponentUnsolved)
	assert.ErrorIs(t, err, ErrNotFound)

	insertTestNode(t, tx, 1, types.NodeSymbol, "placeholder")
	require.NoError(t, tx.InsertComponent(ctx, 1, types.ComponentUnsolved, ""))

	id, err := tx.FindComponent(ctx, types.ComponentUnsolved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// Name lookups skip the tagged node
	_, err = tx.FindNode(ctx, types.NodeSymbol, "placeholder")
	assert.ErrorIs(t, err, ErrNotFound)

	insertTestNode(t, tx, 2, types.NodeSymbol, "placeholder")
	id, err = tx.FindNode(ctx, types.NodeSymbol, "placeholder")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestFileRows(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestFile(t, tx, 1, "src/main.cpp")

	file, err := tx.GetFileByPath(ctx, "src/main.cpp")
	require.NoError(t, err)
	assert.Equal(t, int64(1), file.ID)
	assert.Equal(t, "unknown", file.Language)
	assert.False(t, file.Indexed)

	require.NoError(t, tx.UpdateFileLanguage(ctx, 1, "cpp"))
	require.NoError(t, tx.UpdateFileIndexed(ctx, 1, true))
	require.NoError(t, tx.UpsertFileContent(ctx, 1, "int main() {\n  return 0;\n}"))

	file, err = tx.GetFileByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "cpp", file.Language)
	assert.True(t, file.Indexed)
	assert.Equal(t, 3, file.LineCount)

	// Content is replaced, not duplicated
	require.NoError(t, tx.UpsertFileContent(ctx, 1, "a\nb\n"))
	content, err := tx.GetFileContent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", content)
	file, err = tx.GetFileByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, file.LineCount)

	_, err = tx.GetFileByPath(ctx, "missing.cpp")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tx.UpdateFileIndexed(ctx, 99, true), ErrNotFound)
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"\n\n", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countLines(tt.content), "content %q", tt.content)
	}
}

func TestSourceLocations(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestFile(t, tx, 1, "a.cpp")
	insertTestNode(t, tx, 2, types.NodeFunction, "f")

	loc := &SourceLocation{FileID: 1, Range: types.NewRange(3, 1, 3, 4), Kind: types.LocationToken}
	require.NoError(t, tx.FindOrInsertSourceLocation(ctx, loc))
	first := loc.ID
	assert.Greater(t, first, int64(0))

	// Same file, range and kind resolve to the same row
	again := &SourceLocation{FileID: 1, Range: types.NewRange(3, 1, 3, 4), Kind: types.LocationToken}
	require.NoError(t, tx.FindOrInsertSourceLocation(ctx, again))
	assert.Equal(t, first, again.ID)

	scope := &SourceLocation{FileID: 1, Range: types.NewRange(3, 1, 3, 4), Kind: types.LocationScope}
	require.NoError(t, tx.FindOrInsertSourceLocation(ctx, scope))
	assert.NotEqual(t, first, scope.ID)

	require.NoError(t, tx.InsertOccurrence(ctx, 2, first))
	require.NoError(t, tx.InsertOccurrence(ctx, 2, first))
	require.NoError(t, tx.InsertOccurrence(ctx, 2, scope.ID))

	locations, err := tx.ListLocations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, types.LocationToken, locations[0].Kind)
	assert.Equal(t, types.NewRange(3, 1, 3, 4), locations[0].Range)
}

func TestInsertError(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestFile(t, tx, 1, "a.cpp")
	require.NoError(t, tx.InsertElement(ctx, 2, types.ElementError))
	require.NoError(t, tx.InsertError(ctx, &ErrorRecord{
		ID: 2, Message: "unexpected token", Fatal: true, FileID: 1, Range: types.NewRange(1, 1, 1, 2),
	}))

	require.NoError(t, tx.InsertElement(ctx, 3, types.ElementError))
	require.NoError(t, tx.InsertError(ctx, &ErrorRecord{ID: 3, Message: "no file"}))

	var n int
	require.NoError(t, tx.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM error WHERE file_id IS NULL").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSavepoints(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	insertTestNode(t, tx, 1, types.NodeClass, "A")

	require.NoError(t, tx.Savepoint(ctx, "op"))
	insertTestNode(t, tx, 2, types.NodeClass, "B")
	require.NoError(t, tx.RollbackTo(ctx, "op"))

	_, err := tx.GetNode(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tx.Savepoint(ctx, "op"))
	insertTestNode(t, tx, 3, types.NodeClass, "C")
	require.NoError(t, tx.Release(ctx, "op"))

	_, err = tx.GetNode(ctx, 3)
	assert.NoError(t, err)

	max, err := tx.MaxElementID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), max)
}

func TestClearAll(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	tx := beginTestTx(t, storage)

	require.NoError(t, tx.PutMeta(ctx, "store_id", "abc"))
	insertTestFile(t, tx, 1, "a.cpp")
	insertTestNode(t, tx, 2, types.NodeFunction, "f")
	loc := &SourceLocation{FileID: 1, Range: types.NewRange(1, 1, 1, 1), Kind: types.LocationToken}
	require.NoError(t, tx.FindOrInsertSourceLocation(ctx, loc))
	require.NoError(t, tx.InsertOccurrence(ctx, 2, loc.ID))

	require.NoError(t, tx.ClearAll(ctx))

	max, err := tx.MaxElementID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	for _, table := range recordTables {
		n, err := tx.CountRows(ctx, table)
		require.NoError(t, err)
		assert.Zero(t, n, "table %s", table)
	}

	_, err = tx.CountRows(ctx, "meta; DROP TABLE node")
	assert.Error(t, err)

	value, err := tx.GetMeta(ctx, "store_id")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
}
