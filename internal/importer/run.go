package importer

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/trailstore/internal/trail"
	"github.com/dshills/trailstore/pkg/types"
)

// includeCacheSize bounds the include path to file id cache of one run.
const includeCacheSize = 4096

type symbolState int

const (
	symbolNew symbolState = iota
	symbolVisiting
	symbolDone
)

type pendingDoc struct {
	facts  *FactFile
	doc    *Document
	fileID int64
}

type pendingSymbol struct {
	sym       *Symbol
	path      string
	delimiter string
	state     symbolState
}

type referenceLocation struct {
	edgeID int64
	fileID int64
	path   string
	r      Range
}

// run is the state of one import. Facts are recorded in dependency order:
// files, nodes, access, edges, locations, errors.
type run struct {
	im    *Importer
	db    *trail.DB
	facts []*FactFile
	stats *Statistics

	docs      []*pendingDoc
	symbols   map[string]*pendingSymbol
	order     []*pendingSymbol
	nodes     map[string]int64
	refs      []referenceLocation
	includes  *lru.Cache[string, int64]
	sinceLast int
}

func newRun(im *Importer, facts []*FactFile) *run {
	includes, _ := lru.New[string, int64](includeCacheSize)
	return &run{
		im:       im,
		db:       im.db,
		facts:    facts,
		stats:    &Statistics{ErrorMessages: make([]string, 0)},
		symbols:  make(map[string]*pendingSymbol),
		nodes:    make(map[string]int64),
		includes: includes,
	}
}

func (r *run) execute(ctx context.Context) error {
	for _, f := range r.facts {
		if f == nil {
			continue
		}
		r.stats.FactFiles++
		for i := range f.Documents {
			d := &f.Documents[i]
			if !r.im.keep(d.Path) {
				r.stats.Skipped++
				r.im.logger.Debug("document skipped", "path", d.Path)
				continue
			}
			r.docs = append(r.docs, &pendingDoc{facts: f, doc: d})
		}
	}

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"files", r.recordFiles},
		{"nodes", r.recordNodes},
		{"access", r.recordAccess},
		{"edges", r.recordEdges},
		{"locations", r.recordLocations},
		{"errors", r.recordErrors},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := phase.fn(ctx); err != nil {
			return fmt.Errorf("failed to record %s: %w", phase.name, err)
		}
		r.im.logger.Debug("import phase finished", "phase", phase.name, "rejected", r.stats.Rejected)
	}

	return r.commit(ctx)
}

// done accounts for one recording. A rejected fact is counted and reported;
// any other failure aborts the import.
func (r *run) done(ctx context.Context, what string, err error) (bool, error) {
	if err != nil {
		if rejectable(err) {
			r.stats.reject(what, err)
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", what, err)
	}

	r.sinceLast++
	if r.sinceLast >= r.im.commitEvery {
		if err := r.commit(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *run) commit(ctx context.Context) error {
	if err := r.db.Commit(ctx); err != nil {
		return err
	}
	r.sinceLast = 0
	r.stats.Commits++
	return nil
}

func (r *run) recordFiles(ctx context.Context) error {
	for _, d := range r.docs {
		what := fmt.Sprintf("file %q", d.doc.Path)
		id, err := r.db.RecordFile(ctx, d.doc.Path, d.doc.IsIndexed())
		ok, err := r.done(ctx, what, err)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		d.fileID = id
		r.stats.Files++
		r.stats.Documents++

		if d.doc.Language != "" {
			if _, err := r.done(ctx, what, r.db.RecordFileLanguage(ctx, id, d.doc.Language)); err != nil {
				return err
			}
		}
		if d.doc.Content != "" {
			if _, err := r.done(ctx, what, r.db.RecordFileContent(ctx, id, d.doc.Content)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) recordNodes(ctx context.Context) error {
	for _, d := range r.docs {
		if d.fileID == 0 {
			continue
		}
		for i := range d.doc.Symbols {
			s := &d.doc.Symbols[i]
			if s.ID == "" {
				r.stats.reject(d.doc.Path+": symbol", fmt.Errorf("missing id: %w", types.ErrEmptyName))
				continue
			}
			if _, dup := r.symbols[s.ID]; dup {
				r.stats.reject(fmt.Sprintf("%s: symbol %q", d.doc.Path, s.ID),
					fmt.Errorf("symbol id declared twice: %w", types.ErrDuplicateName))
				continue
			}
			p := &pendingSymbol{sym: s, path: d.doc.Path, delimiter: d.facts.delimiter()}
			r.symbols[s.ID] = p
			r.order = append(r.order, p)
		}
	}

	for _, p := range r.order {
		if err := r.recordSymbol(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// recordSymbol records p after its parent chain. A missing, rejected or
// cyclic parent rejects p.
func (r *run) recordSymbol(ctx context.Context, p *pendingSymbol) error {
	if p.state != symbolNew {
		return nil
	}
	p.state = symbolVisiting
	defer func() { p.state = symbolDone }()

	what := fmt.Sprintf("%s: symbol %q", p.path, p.sym.ID)

	var parentID int64
	if p.sym.Parent != "" {
		parent, ok := r.symbols[p.sym.Parent]
		if !ok {
			r.stats.reject(what, fmt.Errorf("parent %q: %w", p.sym.Parent, types.ErrUnknownNode))
			return nil
		}
		if parent.state == symbolVisiting {
			r.stats.reject(what, fmt.Errorf("parent chain through %q is cyclic: %w", p.sym.Parent, types.ErrUnknownNode))
			return nil
		}
		if err := r.recordSymbol(ctx, parent); err != nil {
			return err
		}
		if parentID, ok = r.nodes[p.sym.Parent]; !ok {
			r.stats.reject(what, fmt.Errorf("parent %q was rejected: %w", p.sym.Parent, types.ErrUnknownNode))
			return nil
		}
	}

	kind, err := types.ParseNodeKind(p.sym.Kind)
	if err != nil {
		r.stats.reject(what, fmt.Errorf("%v: %w", err, types.ErrInvalidKind))
		return nil
	}
	definition, err := p.sym.definition()
	if err != nil {
		r.stats.reject(what, fmt.Errorf("%v: %w", err, types.ErrInvalidKind))
		return nil
	}

	id, err := r.db.RecordNode(ctx, kind, p.sym.hierarchy(p.delimiter), parentID, definition)
	ok, err := r.done(ctx, what, err)
	if err != nil {
		return err
	}
	if ok {
		r.nodes[p.sym.ID] = id
		r.stats.Nodes++
	}
	return nil
}

func (r *run) recordAccess(ctx context.Context) error {
	for _, p := range r.order {
		id, ok := r.nodes[p.sym.ID]
		if !ok || p.sym.Access == "" {
			continue
		}
		what := fmt.Sprintf("%s: access of %q", p.path, p.sym.ID)
		access, err := types.ParseAccessKind(p.sym.Access)
		if err != nil {
			r.stats.reject(what, fmt.Errorf("%v: %w", err, types.ErrInvalidKind))
			continue
		}
		if _, err := r.done(ctx, what, r.db.RecordAccess(ctx, id, access)); err != nil {
			return err
		}
	}
	return nil
}

// node maps an analyzer symbol id to its node id.
func (r *run) node(id string) (int64, error) {
	if nodeID, ok := r.nodes[id]; ok {
		return nodeID, nil
	}
	return 0, fmt.Errorf("symbol %q: %w", id, types.ErrUnknownNode)
}

func (r *run) recordEdges(ctx context.Context) error {
	for _, d := range r.docs {
		if d.fileID == 0 {
			continue
		}
		for i := range d.doc.References {
			if err := r.recordReference(ctx, d, &d.doc.References[i]); err != nil {
				return err
			}
		}
		for _, path := range d.doc.Includes {
			if err := r.recordInclude(ctx, d, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) recordReference(ctx context.Context, d *pendingDoc, ref *Reference) error {
	what := fmt.Sprintf("%s: %s reference from %q", d.doc.Path, ref.Kind, ref.Source)

	kind, err := types.ParseEdgeKind(ref.Kind)
	if err != nil {
		r.stats.reject(what, fmt.Errorf("%v: %w", err, types.ErrInvalidKind))
		return nil
	}
	source, err := r.node(ref.Source)
	if err != nil {
		r.stats.reject(what, err)
		return nil
	}

	if ref.Target == "" {
		if ref.Range == nil {
			r.stats.reject(what, fmt.Errorf("unresolved reference needs a range: %w", types.ErrInvalidRange))
			return nil
		}
		_, err := r.db.RecordReferenceToUnsolvedSymbol(ctx, source, kind, d.fileID, ref.Range.toRange())
		ok, err := r.done(ctx, what, err)
		if err != nil {
			return err
		}
		if ok {
			r.stats.Edges++
			r.stats.Locations++
		}
		return nil
	}

	target, err := r.node(ref.Target)
	if err != nil {
		r.stats.reject(what, err)
		return nil
	}
	id, err := r.db.RecordEdge(ctx, kind, source, target)
	ok, err := r.done(ctx, what, err)
	if err != nil || !ok {
		return err
	}
	r.stats.Edges++

	if ref.Ambiguous {
		if _, err := r.done(ctx, what, r.db.MarkAmbiguous(ctx, id)); err != nil {
			return err
		}
	}
	if ref.Range != nil {
		r.refs = append(r.refs, referenceLocation{edgeID: id, fileID: d.fileID, path: d.doc.Path, r: *ref.Range})
	}
	return nil
}

// recordInclude links a document to an included file. Files that were not
// imported themselves are recorded as not indexed.
func (r *run) recordInclude(ctx context.Context, d *pendingDoc, path string) error {
	what := fmt.Sprintf("%s: include of %q", d.doc.Path, path)

	target, err := r.includedFile(ctx, what, path)
	if err != nil || target == 0 {
		return err
	}

	_, err = r.db.RecordInclude(ctx, d.fileID, target)
	ok, err := r.done(ctx, what, err)
	if err != nil {
		return err
	}
	if ok {
		r.stats.Edges++
	}
	return nil
}

// includedFile resolves an include path to a file id, recording the file when
// it is new. It returns 0 when the file was rejected.
func (r *run) includedFile(ctx context.Context, what, path string) (int64, error) {
	if id, ok := r.includes.Get(path); ok {
		return id, nil
	}

	file, err := r.db.FileByPath(ctx, path)
	switch {
	case err == nil:
		r.includes.Add(path, file.ID)
		return file.ID, nil
	case !errors.Is(err, types.ErrUnknownFile):
		return 0, fmt.Errorf("%s: %w", what, err)
	}

	id, err := r.db.RecordFile(ctx, path, false)
	ok, err := r.done(ctx, what, err)
	if err != nil || !ok {
		return 0, err
	}
	r.stats.Files++
	r.includes.Add(path, id)
	return id, nil
}

func (r *run) recordLocations(ctx context.Context) error {
	for _, d := range r.docs {
		if d.fileID == 0 {
			continue
		}
		for _, o := range d.doc.Occurrences {
			if err := r.recordOccurrence(ctx, d, o); err != nil {
				return err
			}
		}
		for _, local := range d.doc.LocalSymbols {
			if err := r.recordLocalSymbol(ctx, d, local); err != nil {
				return err
			}
		}
		for _, rng := range d.doc.AtomicRanges {
			what := fmt.Sprintf("%s: atomic range %s", d.doc.Path, rng.toRange())
			_, err := r.db.RecordAtomicSourceRange(ctx, d.fileID, rng.toRange())
			if err := r.location(ctx, what, err); err != nil {
				return err
			}
		}
	}

	for _, ref := range r.refs {
		what := fmt.Sprintf("%s: reference location %s", ref.path, ref.r.toRange())
		_, err := r.db.RecordReferenceLocation(ctx, ref.edgeID, ref.fileID, ref.r.toRange())
		if err := r.location(ctx, what, err); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) location(ctx context.Context, what string, err error) error {
	ok, err := r.done(ctx, what, err)
	if ok {
		r.stats.Locations++
	}
	return err
}

func (r *run) recordOccurrence(ctx context.Context, d *pendingDoc, o Occurrence) error {
	what := fmt.Sprintf("%s: occurrence of %q at %s", d.doc.Path, o.Symbol, o.Range.toRange())

	id, err := r.node(o.Symbol)
	if err != nil {
		r.stats.reject(what, err)
		return nil
	}
	kind, err := types.ParseLocationKind(o.Kind)
	if err != nil {
		r.stats.reject(what, fmt.Errorf("%v: %w", err, types.ErrInvalidKind))
		return nil
	}

	rng := o.Range.toRange()
	switch kind {
	case types.LocationToken:
		_, err = r.db.RecordSymbolLocation(ctx, id, d.fileID, rng)
	case types.LocationScope:
		_, err = r.db.RecordSymbolScopeLocation(ctx, id, d.fileID, rng)
	case types.LocationSignature:
		_, err = r.db.RecordSymbolSignatureLocation(ctx, id, d.fileID, rng)
	case types.LocationQualifier:
		_, err = r.db.RecordQualifierLocation(ctx, id, d.fileID, rng)
	default:
		err = fmt.Errorf("%s is not a symbol occurrence: %w", kind, types.ErrInvalidKind)
	}
	return r.location(ctx, what, err)
}

func (r *run) recordLocalSymbol(ctx context.Context, d *pendingDoc, local LocalSymbol) error {
	what := fmt.Sprintf("%s: local symbol %q", d.doc.Path, local.Name)

	id, err := r.db.RecordLocalSymbol(ctx, local.Name)
	ok, err := r.done(ctx, what, err)
	if err != nil || !ok {
		return err
	}
	r.stats.LocalSymbols++

	for _, rng := range local.Ranges {
		_, err := r.db.RecordLocalSymbolLocation(ctx, id, d.fileID, rng.toRange())
		if err := r.location(ctx, what, err); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) recordErrors(ctx context.Context) error {
	for _, f := range r.facts {
		if f == nil {
			continue
		}
		for _, e := range f.Errors {
			if err := r.recordError(ctx, "analysis error", 0, e); err != nil {
				return err
			}
		}
	}
	for _, d := range r.docs {
		if d.fileID == 0 {
			continue
		}
		for _, e := range d.doc.Errors {
			if err := r.recordError(ctx, d.doc.Path+": analysis error", d.fileID, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) recordError(ctx context.Context, what string, fileID int64, e Error) error {
	record := trail.AnalysisError{Message: e.Message, Fatal: e.Fatal, Indexed: e.Indexed}
	if e.Range != nil && fileID != 0 {
		record.FileID = fileID
		record.Range = e.Range.toRange()
	}
	_, err := r.db.RecordError(ctx, record)
	ok, err := r.done(ctx, what, err)
	if ok {
		r.stats.Errors++
	}
	return err
}
