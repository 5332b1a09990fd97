package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// Text returns the concatenated text content of result.
// Non-text content is skipped.
func Text(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var out string

	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			out += tc.Text
		}
	}

	return out
}
