package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/trailstore/internal/query"
)

const (
	// ServerName is the MCP server name
	ServerName = "trailstore"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with a read-only view of one store
type Server struct {
	mcp    *server.MCPServer
	reader *query.Reader
	logger *slog.Logger
}

// NewServer opens the store at storePath for reading and registers the tools.
// The store must exist.
func NewServer(ctx context.Context, storePath string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader, err := query.Open(ctx, storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		reader: reader,
		logger: logger,
	}
	s.registerTools()

	logger.Info("mcp server ready", "store", reader.Path())
	return s, nil
}

// Serve answers MCP requests on stdio until ctx is done or stdin closes.
// The store is closed on return.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.reader.Close() }()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// Health reports whether the store is still readable.
func (s *Server) Health(ctx context.Context) error {
	return s.reader.Ping(ctx)
}

// Close releases the store without serving.
func (s *Server) Close() error {
	return s.reader.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(findSymbolTool(), s.handleFindSymbol)
	s.mcp.AddTool(getReferencesTool(), s.handleGetReferences)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
