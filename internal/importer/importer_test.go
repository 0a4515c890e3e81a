package importer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/trailstore/internal/query"
	"github.com/dshills/trailstore/internal/trail"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB opens a fresh store file and returns its path.
func setupTestDB(t *testing.T) (*trail.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project")
	db, err := trail.Open(context.Background(), path, false, trail.WithLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func newTestImporter(t *testing.T, db *trail.DB, config *Config) *Importer {
	t.Helper()
	if config == nil {
		config = &Config{}
	}
	config.Logger = testLogger()
	im, err := New(db, config)
	require.NoError(t, err)
	return im
}

func openReader(t *testing.T, db *trail.DB) *query.Reader {
	t.Helper()
	path := db.Path()
	require.NoError(t, db.Close())
	r, err := query.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func rng(sl, sc, el, ec int) *Range {
	return &Range{sl, sc, el, ec}
}

func name(n string) []NameElement {
	return []NameElement{{Name: n}}
}

func programFacts() *FactFile {
	return &FactFile{
		Tool: "test",
		Documents: []Document{{
			Path:     "src/main.cpp",
			Language: "cpp",
			Content:  "namespace app {\nclass MyMainClass {\n",
			Symbols: []Symbol{
				{ID: "ns", Kind: "namespace", Name: name("app")},
				{ID: "method", Kind: "method", Name: []NameElement{{Prefix: "static void", Name: "main", Postfix: "()"}}, Parent: "class", Access: "public"},
				{ID: "class", Kind: "class", Name: name("MyMainClass"), Parent: "ns"},
				{ID: "field", Kind: "field", Name: name("first_name"), Parent: "class", Access: "private"},
				{ID: "helper", Kind: "function", Name: name("helper"), Definition: "none"},
			},
			Occurrences: []Occurrence{
				{Symbol: "method", Range: *rng(3, 7, 3, 10)},
				{Symbol: "method", Kind: "scope", Range: *rng(3, 1, 8, 1)},
			},
			References: []Reference{
				{Kind: "usage", Source: "method", Target: "field", Range: rng(5, 8, 5, 17)},
				{Kind: "call", Source: "method", Target: "helper", Ambiguous: true},
				{Kind: "call", Source: "method", Range: rng(6, 3, 6, 9)},
			},
			LocalSymbols: []LocalSymbol{{Name: "main.cpp<4:7>", Ranges: []Range{{4, 7, 4, 7}, {5, 3, 5, 3}}}},
			AtomicRanges: []Range{{10, 1, 12, 2}},
			Includes:     []string{"include/app.h"},
			Errors:       []Error{{Message: "unused variable", Range: rng(4, 7, 4, 7)}},
		}},
		Errors: []Error{{Message: "no compile commands", Fatal: true}},
	}
}

func TestImportFacts(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)

	stats, err := im.ImportFacts(ctx, programFacts())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FactFiles)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 5, stats.Nodes)
	assert.Equal(t, 4, stats.Edges)
	assert.Equal(t, 7, stats.Locations)
	assert.Equal(t, 1, stats.LocalSymbols)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 0, stats.Rejected, stats.ErrorMessages)
	assert.Equal(t, 1, stats.Commits)

	r := openReader(t, db)

	nodes, err := r.NodesByName(ctx, "app::MyMainClass::main", "::", 0, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	method := nodes[0]
	assert.Equal(t, "method", method.KindName)
	last, _ := method.Name.Last()
	assert.Equal(t, "static void", last.Prefix)

	helper, err := r.NodesByName(ctx, "helper", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, helper, 1)
	assert.Equal(t, "none", helper[0].Definition)

	edges, err := r.EdgesFrom(ctx, method.ID)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, "usage", edges[0].KindName)
	assert.False(t, edges[0].Ambiguous)
	assert.Equal(t, "call", edges[1].KindName)
	assert.True(t, edges[1].Ambiguous)

	unsolved, err := r.Node(ctx, edges[2].TargetID)
	require.NoError(t, err)
	assert.Equal(t, trail.UnsolvedSymbolName, unsolved.Qualified)

	occurrences, err := r.Occurrences(ctx, method.ID)
	require.NoError(t, err)
	assert.Len(t, occurrences, 2)

	file, err := r.FileByPath(ctx, "src/main.cpp")
	require.NoError(t, err)
	assert.Equal(t, "cpp", file.Language)
	assert.True(t, file.Indexed)
	assert.Equal(t, 2, file.LineCount)

	header, err := r.FileByPath(ctx, "include/app.h")
	require.NoError(t, err)
	assert.False(t, header.Indexed)

	errs, err := r.Errors(ctx)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "no compile commands", errs[0].Message)
	assert.Equal(t, "src/main.cpp", errs[1].Path.String)

	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, status.Nodes) // two files and the unsolved placeholder
	assert.Equal(t, 4, status.Edges)
	assert.Equal(t, 7, status.Locations)
	assert.Equal(t, 1, status.Ambiguous)
}

func TestImportFacts_Rejections(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)

	facts := &FactFile{Documents: []Document{{
		Path: "a.cpp",
		Symbols: []Symbol{
			{ID: "class", Kind: "class", Name: name("A")},
			{ID: "field", Kind: "field", Name: name("x"), Parent: "class"},
			{ID: "orphan", Kind: "field", Name: name("y"), Parent: "missing"},
			{ID: "loop1", Kind: "class", Name: name("L1"), Parent: "loop2"},
			{ID: "loop2", Kind: "class", Name: name("L2"), Parent: "loop1"},
			{ID: "bad", Kind: "widget", Name: name("w")},
			{ID: "file", Kind: "file", Name: name("f")},
			{ID: "class", Kind: "struct", Name: name("B")},
			{ID: "dup", Kind: "function", Name: name("A")},
			{ID: "dup2", Kind: "class", Name: name("A")},
		},
		References: []Reference{
			{Kind: "inheritance", Source: "field", Target: "class"},
			{Kind: "usage", Source: "class", Target: "nowhere"},
			{Kind: "usage", Source: "class", Target: "field", Range: rng(9, 9, 1, 1)},
			{Kind: "call", Source: "orphan"},
		},
		Occurrences: []Occurrence{
			{Symbol: "class", Range: Range{2, 1, 1, 1}},
			{Symbol: "class", Kind: "atomic_range", Range: Range{1, 1, 1, 1}},
		},
	}}}

	stats, err := im.ImportFacts(ctx, facts)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Nodes) // class, field, dup
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 0, stats.Locations)
	// orphan, two loop members, bad kind, file kind, duplicate id, duplicate
	// name, illegal edge, unknown target, bad reference range, unknown
	// source, two bad occurrences
	assert.Equal(t, 13, stats.Rejected)
	assert.Len(t, stats.ErrorMessages, 13)
	assert.Contains(t, strings.Join(stats.ErrorMessages, "\n"), `symbol "orphan"`)

	r := openReader(t, db)
	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Nodes) // file node included
	assert.Equal(t, 1, status.Edges)
	assert.Equal(t, 0, status.Locations)
}

func TestImportFacts_Includes(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)

	facts := &FactFile{Documents: []Document{
		{Path: "src/a.cpp", Includes: []string{"include/common.h"}},
		{Path: "src/b.cpp", Includes: []string{"include/common.h", "src/a.cpp"}},
	}}

	stats, err := im.ImportFacts(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, 0, stats.Rejected, stats.ErrorMessages)

	r := openReader(t, db)
	imported, err := r.FileByPath(ctx, "src/a.cpp")
	require.NoError(t, err)
	assert.True(t, imported.Indexed, "including a file does not demote it")

	header, err := r.FileByPath(ctx, "include/common.h")
	require.NoError(t, err)
	assert.False(t, header.Indexed)
	incoming, err := r.EdgesTo(ctx, header.ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)
}

func TestImportFacts_Filters(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, &Config{
		Include: []string{"src/**"},
		Exclude: []string{"**/*_test.cpp"},
	})

	facts := &FactFile{Documents: []Document{
		{Path: "src/a.cpp", Symbols: []Symbol{{ID: "a", Kind: "function", Name: name("a")}},
			References: []Reference{{Kind: "call", Source: "a", Target: "t"}}},
		{Path: "src/a_test.cpp", Symbols: []Symbol{{ID: "t", Kind: "function", Name: name("t")}}},
		{Path: "lib/b.cpp", Symbols: []Symbol{{ID: "b", Kind: "function", Name: name("b")}}},
	}}

	stats, err := im.ImportFacts(ctx, facts)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 1, stats.Rejected, "call into a skipped document")

	r := openReader(t, db)
	files, err := r.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/a.cpp", files[0].Path)
}

func TestImportFacts_CommitEvery(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, &Config{CommitEvery: 2})

	facts := &FactFile{Documents: []Document{{
		Path: "a.cpp",
		Symbols: []Symbol{
			{ID: "a", Kind: "function", Name: name("a")},
			{ID: "b", Kind: "function", Name: name("b")},
			{ID: "c", Kind: "function", Name: name("c")},
		},
	}}}

	stats, err := im.ImportFacts(ctx, facts)
	require.NoError(t, err)
	// four recordings commit twice, plus the final commit
	assert.Equal(t, 3, stats.Commits)
}

func writeFacts(t *testing.T, dir, file string, facts *FactFile) string {
	t.Helper()
	data, err := json.Marshal(facts)
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImport_Files(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, &Config{Workers: 2})
	dir := t.TempDir()

	// Symbol ids are shared across the fact files of one import
	first := writeFacts(t, dir, "a.json", &FactFile{Delimiter: ".", Documents: []Document{{
		Path:    "pkg/A.java",
		Symbols: []Symbol{{ID: "pkg", Kind: "package", Name: name("pkg")}, {ID: "A", Kind: "class", Name: name("A"), Parent: "pkg"}},
	}}})
	second := writeFacts(t, dir, "b.json", &FactFile{Delimiter: ".", Documents: []Document{{
		Path:       "pkg/B.java",
		Symbols:    []Symbol{{ID: "B", Kind: "class", Name: name("B"), Parent: "pkg"}},
		References: []Reference{{Kind: "inheritance", Source: "B", Target: "A"}},
	}}})

	stats, err := im.Import(ctx, []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FactFiles)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 0, stats.Rejected, stats.ErrorMessages)

	r := openReader(t, db)
	nodes, err := r.NodesByName(ctx, "pkg.B", ".", 0, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
}

func TestImport_DecodeFailure(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)
	dir := t.TempDir()

	good := writeFacts(t, dir, "good.json", programFacts())
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	_, err := im.Import(ctx, []string{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")

	_, err = im.Import(ctx, []string{filepath.Join(dir, "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	r := openReader(t, db)
	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Nodes)
}

func TestImport_Lock(t *testing.T) {
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)

	require.True(t, im.lock.TryAcquire())
	_, err := im.ImportFacts(context.Background(), programFacts())
	assert.ErrorIs(t, err, ErrImportInProgress)
	_, err = im.Import(context.Background(), nil)
	assert.ErrorIs(t, err, ErrImportInProgress)

	im.lock.Release()
	_, err = im.ImportFacts(context.Background(), programFacts())
	assert.NoError(t, err)
}

func TestImport_ClosedStore(t *testing.T) {
	db, _ := setupTestDB(t)
	im := newTestImporter(t, db, nil)
	require.NoError(t, db.Close())

	_, err := im.ImportFacts(context.Background(), programFacts())
	assert.Error(t, err)
}

func TestNew_InvalidGlob(t *testing.T) {
	db, _ := setupTestDB(t)
	_, err := New(db, &Config{Include: []string{"src/[a"}})
	assert.Error(t, err)
}

func TestDecodeFacts(t *testing.T) {
	input := `{
		"delimiter": "::",
		"documents": [{
			"path": "a.cpp",
			"indexed": false,
			"symbols": [{"id": "f", "kind": "function", "name": [{"name": "f", "postfix": "(int)"}]}],
			"occurrences": [{"symbol": "f", "range": [1, 5, 1, 5]}]
		}]
	}`
	facts, err := DecodeFacts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, facts.Documents, 1)

	doc := facts.Documents[0]
	assert.False(t, doc.IsIndexed())
	assert.Equal(t, "(int)", doc.Symbols[0].Name[0].Postfix)
	assert.Equal(t, Range{1, 5, 1, 5}, doc.Occurrences[0].Range)
	assert.True(t, (&Document{}).IsIndexed())

	_, err = DecodeFacts(strings.NewReader("[]"))
	assert.Error(t, err)
}
