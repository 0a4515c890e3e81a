package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/trailstore/internal/config"
	"github.com/dshills/trailstore/internal/importer"
	"github.com/dshills/trailstore/internal/mcp"
	"github.com/dshills/trailstore/internal/observability"
	"github.com/dshills/trailstore/internal/query"
	"github.com/dshills/trailstore/internal/storage"
	"github.com/dshills/trailstore/internal/trail"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `Usage: trailstore [-config file] [-log-level level] <command> [flags]

Commands:
  import   record JSON fact files into a store
  serve    answer MCP queries about a store on stdio
  info     print store status as JSON

Run "trailstore <command> -h" for command flags.
`

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("trailstore\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "trailstore: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("trailstore", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", "", "TOML config file")
	logLevel := global.String("log-level", "", "log level (debug, info, warn, error)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	// Log to stderr (stdout reserved for MCP protocol and command output)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "import":
		return runImport(ctx, cfg, logger, rest)
	case "serve":
		return runServe(ctx, cfg, logger, rest)
	case "info":
		return runInfo(ctx, cfg, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	storePath := fs.String("store", cfg.Store.Path, "store path; "+trail.Extension+" is appended")
	clearStore := fs.Bool("clear", cfg.Store.Clear, "delete everything recorded before importing")
	workers := fs.Int("workers", cfg.Import.Workers, "concurrent fact file decoders (0 = CPU count)")
	commitEvery := fs.Int("commit-every", cfg.Import.CommitEvery, "recorded facts per commit")
	var include, exclude stringList
	fs.Var(&include, "include", "document path glob to keep (repeatable)")
	fs.Var(&exclude, "exclude", "document path glob to drop (repeatable)")
	metricsAddr := fs.String("metrics", cfg.Server.MetricsAddr, "observability listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("import needs at least one fact file")
	}
	if len(include) == 0 {
		include = cfg.Import.Include
	}
	if len(exclude) == 0 {
		exclude = cfg.Import.Exclude
	}

	db, err := trail.Open(ctx, *storePath, *clearStore, trail.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stopObservability := startObservability(*metricsAddr, nil, logger)
	defer stopObservability()

	im, err := importer.New(db, &importer.Config{
		Workers:     *workers,
		CommitEvery: *commitEvery,
		Include:     include,
		Exclude:     exclude,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	stats, err := im.Import(ctx, fs.Args())
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"store":         db.Path(),
		"fact_files":    stats.FactFiles,
		"documents":     stats.Documents,
		"skipped":       stats.Skipped,
		"files":         stats.Files,
		"nodes":         stats.Nodes,
		"edges":         stats.Edges,
		"locations":     stats.Locations,
		"local_symbols": stats.LocalSymbols,
		"errors":        stats.Errors,
		"rejected":      stats.Rejected,
		"commits":       stats.Commits,
		"duration_ms":   stats.Duration.Milliseconds(),
		"messages":      stats.ErrorMessages,
	})
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	storePath := fs.String("store", cfg.Store.Path, "store path; "+trail.Extension+" is appended")
	metricsAddr := fs.String("metrics", cfg.Server.MetricsAddr, "observability listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Info("trailstore MCP server starting", "version", version,
		"build_mode", storage.BuildMode, "driver", storage.DriverName)

	server, err := mcp.NewServer(ctx, *storePath, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	stopObservability := startObservability(*metricsAddr, server.Health, logger)
	defer stopObservability()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func runInfo(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	storePath := fs.String("store", cfg.Store.Path, "store path; "+trail.Extension+" is appended")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := query.Open(ctx, *storePath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	status, err := reader.Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(status)
}

// startObservability serves /metrics and /healthz when addr is set. The
// returned func stops the listener.
func startObservability(addr string, health observability.HealthFunc, logger *slog.Logger) func() {
	if addr == "" {
		return func() {}
	}

	srv := observability.NewServer(addr, health, logger)
	srv.Start()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("failed to stop observability server", "error", err)
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
