package command

import "time"

// Same windows the MCP server uses.
const (
	pageTTL   = 15 * time.Minute
	searchTTL = 5 * time.Minute
)
