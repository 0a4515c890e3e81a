// Package query reads committed stores without going through a recording
// session. It is what the MCP server and the info command use.
package query
