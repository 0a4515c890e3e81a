package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/trailstore/internal/query"
	"github.com/dshills/trailstore/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSymbolNotFound = -32001 // No node with the given id
	ErrorCodeEmptyQuery     = -32004 // Query parameter is empty
)

// handleFindSymbol handles the find_symbol tool invocation
func (s *Server) handleFindSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "name parameter is required and cannot be empty", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	var kind types.NodeKind
	if kindName := getStringDefault(args, "kind", ""); kindName != "" {
		var err error
		if kind, err = types.ParseNodeKind(kindName); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
				"param":   "kind",
				"value":   kindName,
				"allowed": nodeKindNames(),
			})
		}
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	delimiter := getStringDefault(args, "delimiter", "")

	nodes, err := s.reader.NodesByName(ctx, name, delimiter, kind, limit)
	if errors.Is(err, types.ErrEmptyName) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "name parameter cannot be blank", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "symbol lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	symbols := make([]map[string]interface{}, 0, len(nodes))
	for _, node := range nodes {
		occurrences, err := s.reader.Occurrences(ctx, node.ID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "location lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		symbols = append(symbols, map[string]interface{}{
			"id":         node.ID,
			"kind":       node.KindName,
			"name":       node.Qualified,
			"definition": node.Definition,
			"locations":  occurrences,
		})
	}

	response := map[string]interface{}{
		"query":   name,
		"count":   len(symbols),
		"symbols": symbols,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetReferences handles the get_references tool invocation
func (s *Server) handleGetReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := int64(getIntDefault(args, "id", 0))
	if id <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or not positive",
		})
	}

	direction := getStringDefault(args, "direction", "both")
	if direction != "outgoing" && direction != "incoming" && direction != "both" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid direction", map[string]interface{}{
			"param":   "direction",
			"value":   direction,
			"allowed": []string{"outgoing", "incoming", "both"},
		})
	}

	node, err := s.reader.Node(ctx, id)
	if errors.Is(err, types.ErrUnknownNode) {
		return nil, newMCPError(ErrorCodeSymbolNotFound, "symbol not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "symbol lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"symbol": map[string]interface{}{
			"id":   node.ID,
			"kind": node.KindName,
			"name": node.Qualified,
		},
	}

	if direction != "incoming" {
		edges, err := s.reader.EdgesFrom(ctx, id)
		if err == nil {
			response["outgoing"], err = s.describeEdges(ctx, edges, func(e query.Edge) int64 { return e.TargetID })
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "reference lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if direction != "outgoing" {
		edges, err := s.reader.EdgesTo(ctx, id)
		if err == nil {
			response["incoming"], err = s.describeEdges(ctx, edges, func(e query.Edge) int64 { return e.SourceID })
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "reference lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// describeEdges resolves the node at the far end of each edge and attaches
// the reference locations.
func (s *Server) describeEdges(ctx context.Context, edges []query.Edge, other func(query.Edge) int64) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(edges))
	for _, edge := range edges {
		node, err := s.reader.Node(ctx, other(edge))
		if err != nil {
			return nil, err
		}
		occurrences, err := s.reader.Occurrences(ctx, edge.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"id":        edge.ID,
			"kind":      edge.KindName,
			"ambiguous": edge.Ambiguous,
			"symbol": map[string]interface{}{
				"id":   node.ID,
				"kind": node.KindName,
				"name": node.Qualified,
			},
			"locations": occurrences,
		})
	}
	return out, nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.reader.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"store": map[string]interface{}{
			"path":            status.Path,
			"store_id":        status.StoreID,
			"storage_version": status.StorageVersion,
			"schema_version":  status.SchemaVersion,
			"created_at":      status.CreatedAt,
			"size_mb":         fmt.Sprintf("%.2f", float64(status.SizeBytes)/(1024*1024)),
		},
		"statistics": map[string]interface{}{
			"nodes":         status.Nodes,
			"edges":         status.Edges,
			"files":         status.Files,
			"local_symbols": status.LocalSymbols,
			"locations":     status.Locations,
			"errors":        status.Errors,
			"ambiguous":     status.Ambiguous,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
