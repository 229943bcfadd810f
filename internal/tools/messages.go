package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/wiki-fetch/internal/messages"
)

// MessageFetcher is the cached batch lookup behind "wiki-messages".
type MessageFetcher interface {
	Fetch(ctx context.Context, in messages.Input) (*messages.Set, error)
}

// MessagesHandler returns the MCP tool handler for the "wiki-messages" tool.
// "messages" is a "|" or comma separated list of message names.
func MessagesHandler(fetcher MessageFetcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("messages")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		q := messages.Query{
			Messages: splitNames(raw),
			Lang:     req.GetString("lang", ""),
			NoCache:  req.GetBool("no_cache", false),
		}
		set, err := fetcher.Fetch(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatMessages(set)), nil
	}
}

func splitNames(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
}

func formatMessages(set *messages.Set) string {
	if set.Len() == 0 {
		return "No messages."
	}
	missing := make(map[string]bool)
	for _, n := range set.Missing() {
		missing[n] = true
	}
	var sb strings.Builder
	for i, name := range set.Names() {
		if i > 0 {
			sb.WriteString("\n")
		}
		if missing[name] {
			sb.WriteString(fmt.Sprintf("%s: (undefined)", name))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s", name, set.At(i)))
	}
	return sb.String()
}
