package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// parseRows accepts either a JSON array of objects or the same array
// stringified, which some MCP clients send for array parameters.
func parseRows(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		v = trimString(v)
		if v == "" {
			return nil, nil
		}
		var rows []map[string]any
		if err := json.Unmarshal([]byte(v), &rows); err != nil {
			return nil, fmt.Errorf("parameter \"rows_json\" could not be parsed as a JSON array of objects: %w", err)
		}
		return rows, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("parameter \"rows_json\" element %d is %T, expected an object", i, item)
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("parameter \"rows_json\" has type %T, expected a JSON array", raw)
	}
}
