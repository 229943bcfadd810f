package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	web "github.com/leonardcser/wiki-fetch/internal/web"
)

// PageFetcher is the cached page fetch behind "wiki-page".
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, noCache bool) (*web.PageSummary, error)
}

// Renderer maps a page title to its rendered-HTML URL.
type Renderer interface {
	RenderURL(title string) string
}

// PageHandler returns the MCP tool handler for the "wiki-page" tool. The
// "page" argument is either a full URL or a page title on the configured wiki.
func PageHandler(fetcher PageFetcher, wiki Renderer) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		page, err := req.RequireString("page")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		target := strings.TrimSpace(page)
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			target = wiki.RenderURL(target)
		}

		ps, err := fetcher.Fetch(ctx, target, req.GetBool("no_cache", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatPageSummary(ps)), nil
	}
}

func formatPageSummary(ps *web.PageSummary) string {
	var sb strings.Builder
	if ps.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(ps.Title)
		sb.WriteString("\n\n")
	}
	if ps.Description != "" {
		sb.WriteString(ps.Description)
		sb.WriteString("\n\n")
	}
	if len(ps.Links) > 0 {
		sb.WriteString("## Links\n")
		for _, l := range ps.Links {
			sb.WriteString("- ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(ps.Text)
	return sb.String()
}
