package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/trailstore/pkg/types"
)

func nodeKindNames() []string {
	kinds := types.NodeKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}

// findSymbolTool returns the tool definition for find_symbol
func findSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_symbol",
		Description: "Find recorded symbols by name and list where they occur",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name, either its own name (main) or qualified (MyMainClass::main)",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Only return symbols of this kind",
					"enum":        nodeKindNames(),
				},
				"delimiter": map[string]interface{}{
					"type":        "string",
					"description": "Scope delimiter used in a qualified name",
					"default":     "::",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of symbols to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"name"},
		},
	}
}

// getReferencesTool returns the tool definition for get_references
func getReferencesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_references",
		Description: "List the references leaving or entering a symbol, with their source locations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Symbol id as returned by find_symbol",
					"minimum":     1,
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"description": "outgoing (what the symbol uses), incoming (what uses the symbol) or both",
					"enum":        []string{"outgoing", "incoming", "both"},
					"default":     "both",
				},
			},
			Required: []string{"id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report store metadata and row counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
