package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Datasource string `json:"datasource"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and configured datasource type.
func RegisterHealthTool(s *server.MCPServer, version, datasourceType string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and datasource type"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, Datasource: datasourceType})
	})
}
