package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/trailstore/internal/observability"
	"github.com/dshills/trailstore/internal/trail"
	"github.com/dshills/trailstore/pkg/types"
)

// ErrImportInProgress is returned when an import is started while another one
// is running on the same importer.
var ErrImportInProgress = errors.New("import already in progress")

// DefaultCommitEvery is the number of recorded facts between commits.
const DefaultCommitEvery = 1000

// maxErrorMessages caps Statistics.ErrorMessages.
const maxErrorMessages = 100

// Config contains configuration for the importer
type Config struct {
	Workers     int      // Concurrent fact file decoders (default: runtime.NumCPU())
	CommitEvery int      // Recorded facts per commit (default: 1000)
	Include     []string // Document path globs to keep; empty keeps all
	Exclude     []string // Document path globs to drop
	Logger      *slog.Logger
}

// Statistics contains statistics about an import
type Statistics struct {
	FactFiles     int
	Documents     int
	Skipped       int
	Files         int
	Nodes         int
	Edges         int
	Locations     int
	LocalSymbols  int
	Errors        int
	Rejected      int
	Commits       int
	Duration      time.Duration
	ErrorMessages []string
}

func (s *Statistics) reject(what string, err error) {
	s.Rejected++
	if len(s.ErrorMessages) < maxErrorMessages {
		s.ErrorMessages = append(s.ErrorMessages, fmt.Sprintf("%s: %v", what, err))
	}
}

// Importer records fact files into a store session.
type Importer struct {
	db          *trail.DB
	lock        ImportLock
	logger      *slog.Logger
	workers     int
	commitEvery int
	include     []glob.Glob
	exclude     []glob.Glob
}

// New creates an importer writing to db.
func New(db *trail.DB, config *Config) (*Importer, error) {
	if config == nil {
		config = &Config{}
	}

	im := &Importer{
		db:          db,
		logger:      config.Logger,
		workers:     config.Workers,
		commitEvery: config.CommitEvery,
	}
	if im.logger == nil {
		im.logger = slog.Default()
	}
	if im.workers <= 0 {
		im.workers = runtime.NumCPU()
	}
	if im.commitEvery <= 0 {
		im.commitEvery = DefaultCommitEvery
	}

	var err error
	if im.include, err = compileGlobs(config.Include); err != nil {
		return nil, err
	}
	if im.exclude, err = compileGlobs(config.Exclude); err != nil {
		return nil, err
	}
	return im, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// keep reports whether a document path passes the include and exclude globs.
func (im *Importer) keep(path string) bool {
	for _, g := range im.exclude {
		if g.Match(path) {
			return false
		}
	}
	if len(im.include) == 0 {
		return true
	}
	for _, g := range im.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Import decodes the fact files at paths concurrently and records them in one
// pass. A fact file that cannot be decoded aborts the import before anything
// is recorded.
func (im *Importer) Import(ctx context.Context, paths []string) (*Statistics, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	facts, err := im.decode(ctx, paths)
	if err != nil {
		return nil, err
	}
	return im.record(ctx, facts)
}

// ImportFacts records already decoded fact files.
func (im *Importer) ImportFacts(ctx context.Context, facts ...*FactFile) (*Statistics, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	return im.record(ctx, facts)
}

func (im *Importer) decode(ctx context.Context, paths []string) ([]*FactFile, error) {
	facts := make([]*FactFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := LoadFactFile(path)
			if err != nil {
				return err
			}
			facts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to decode fact files: %w", err)
	}
	return facts, nil
}

func (im *Importer) record(ctx context.Context, facts []*FactFile) (*Statistics, error) {
	ctx, span := observability.Tracer.Start(ctx, "importer.Import")
	defer span.End()

	start := time.Now()
	run := newRun(im, facts)
	if err := run.execute(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	run.stats.Duration = time.Since(start)
	observability.ImportDuration.Observe(run.stats.Duration.Seconds())
	observability.ImportedDocuments.Add(float64(run.stats.Documents))

	im.logger.Info("import finished",
		"fact_files", run.stats.FactFiles,
		"documents", run.stats.Documents,
		"skipped", run.stats.Skipped,
		"nodes", run.stats.Nodes,
		"edges", run.stats.Edges,
		"locations", run.stats.Locations,
		"rejected", run.stats.Rejected,
		"duration", run.stats.Duration)
	return run.stats, nil
}

// rejectable reports whether err rejects a single fact rather than the whole
// import.
func rejectable(err error) bool {
	for _, target := range []error{
		types.ErrUnknownNode,
		types.ErrUnknownFile,
		types.ErrUnknownElement,
		types.ErrUnknownReference,
		types.ErrIllegalEdge,
		types.ErrInvalidRange,
		types.ErrInvalidKind,
		types.ErrEmptyName,
		types.ErrDuplicateName,
		types.ErrAccessConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
