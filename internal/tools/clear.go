package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Clearer drops every cached result.
type Clearer interface {
	Clear() (int, error)
}

// ClearHandler returns the MCP tool handler for the "cache-clear" tool.
func ClearHandler(c Clearer) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		n, err := c.Clear()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed %d cached entries.", n)), nil
	}
}
