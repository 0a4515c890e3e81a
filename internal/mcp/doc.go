// Package mcp implements the Model Context Protocol (MCP) server for trailstore.
//
// The server opens one committed store read-only and exposes three tools to
// MCP clients:
//   - find_symbol: look symbols up by name and list their locations
//   - get_references: list the edges leaving or entering a symbol
//   - get_status: report store metadata and row counts
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout carries the protocol, so logging goes to stderr.
//
// # Basic Usage
//
//	trailstore serve --store build/project
//
// # Tool: find_symbol
//
//	Request:
//	{
//	  "name": "find_symbol",
//	  "arguments": {"name": "MyMainClass::main", "kind": "method", "limit": 20}
//	}
//
//	Response:
//	{
//	  "query": "MyMainClass::main",
//	  "count": 1,
//	  "symbols": [{
//	    "id": 2,
//	    "kind": "method",
//	    "name": "MyMainClass::main",
//	    "definition": "explicit",
//	    "locations": [{"path": "src/main.cpp", "start_line": 3, "start_column": 7, ...}]
//	  }]
//	}
//
// A name without the delimiter matches the symbol's own name in any scope.
//
// # Tool: get_references
//
//	Request:
//	{
//	  "name": "get_references",
//	  "arguments": {"id": 2, "direction": "outgoing"}
//	}
//
// Each reference carries its kind, the symbol at the other end, the
// ambiguous flag and the locations where it was recorded.
//
// # Errors
//
// Tool errors are returned as MCPError values:
//   - -32602: invalid parameters
//   - -32603: internal error
//   - -32001: symbol not found
//   - -32004: empty name
package mcp
