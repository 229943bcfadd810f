package mediawiki

import (
	"strings"

	"github.com/leonardcser/wiki-fetch/internal/version"
)

const product = "wiki-fetch"

// UserAgent builds the identifying User-Agent string MediaWiki operators ask
// API clients to send: product/version, the project URL and, when known, a
// contact address.
func UserAgent(contact string) string {
	var sb strings.Builder
	sb.WriteString(product)
	sb.WriteString("/")
	sb.WriteString(version.Version)
	sb.WriteString(" (https://github.com/leonardcser/wiki-fetch")
	if c := strings.TrimSpace(contact); c != "" {
		sb.WriteString("; ")
		sb.WriteString(c)
	}
	sb.WriteString(")")
	return sb.String()
}
