package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
)

type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// SearchSource runs the uncached search.
type SearchSource interface {
	Search(ctx context.Context, query string, limit int) ([]mediawiki.SearchHit, error)
}

type Searcher struct {
	src    SearchSource
	engine *fetch.Engine
	ttl    time.Duration
}

func NewSearcher(src SearchSource, engine *fetch.Engine, ttl time.Duration) *Searcher {
	return &Searcher{src: src, engine: engine, ttl: ttl}
}

func searchCacheName(q string, limit int) string { return fmt.Sprintf("search-%d-%s", limit, q) }

func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	return fetch.Do(ctx, s.engine, fetch.Descriptor[[]mediawiki.SearchHit, []SearchResult]{
		Name: searchCacheName(q, limit),
		Request: func(ctx context.Context) ([]mediawiki.SearchHit, error) {
			return s.src.Search(ctx, q, limit)
		},
		Process: toResults,
		TTL:     s.ttl,
	})
}

func toResults(hits []mediawiki.SearchHit) []SearchResult {
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Title == "" {
			continue
		}
		results = append(results, SearchResult{Title: h.Title, Description: h.Snippet, Link: h.Link})
	}
	return results
}
