// Package messages fetches batches of localized interface messages through
// the fetch engine.
package messages

import (
	"context"
	"strings"
	"time"

	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
)

// Input is one of Name, Names or Query.
type Input interface {
	query() Query
}

// Name asks for one message. A value containing "|" asks for several.
type Name string

// Names asks for several messages in order.
type Names []string

// Query is the full form; the other inputs normalize into it.
type Query struct {
	Messages []string
	// Lang defaults to the fetcher's language.
	Lang     string
	NoCache  bool
	TTL      time.Duration
}

func (n Name) query() Query { return Query{Messages: strings.Split(string(n), "|")} }
func (n Names) query() Query { return Query{Messages: []string(n)} }
func (q Query) query() Query { return q }

// Source is the API call the fetcher caches.
type Source interface {
	AllMessages(ctx context.Context, names []string, lang string) ([]mediawiki.Message, error)
}

type Fetcher struct {
	engine *fetch.Engine
	src    Source
	lang   string
}

// NewFetcher returns a fetcher that asks src for messages in lang unless a
// query says otherwise. An empty lang means "en".
func NewFetcher(engine *fetch.Engine, src Source, lang string) *Fetcher {
	if lang == "" {
		lang = "en"
	}
	return &Fetcher{engine: engine, src: src, lang: lang}
}

// Fetch returns the requested messages, from the cache when fresh.
func (f *Fetcher) Fetch(ctx context.Context, in Input) (*Set, error) {
	return fetch.Do(ctx, f.engine, f.descriptor(in))
}

// Text returns the content of a single message.
func (f *Fetcher) Text(ctx context.Context, name string) (string, error) {
	set, err := f.Fetch(ctx, Names{name})
	if err != nil {
		return "", err
	}
	return set.Text(), nil
}

func (f *Fetcher) descriptor(in Input) fetch.Descriptor[[]mediawiki.Message, *Set] {
	var q Query
	if in != nil {
		q = in.query()
	}
	names := clean(q.Messages)
	lang := q.Lang
	if lang == "" {
		lang = f.lang
	}
	d := fetch.Descriptor[[]mediawiki.Message, *Set]{
		Process: func(msgs []mediawiki.Message) *Set { return newSet(names, msgs) },
		TTL:     q.TTL,
		NoCache: q.NoCache,
	}
	if len(names) == 0 {
		// Left without a name and request so the engine rejects it.
		return d
	}
	d.Name = CacheName(lang, names)
	d.Request = func(ctx context.Context) ([]mediawiki.Message, error) {
		return f.src.AllMessages(ctx, names, lang)
	}
	return d
}

// CacheName is the engine name used for a batch.
func CacheName(lang string, names []string) string {
	return "msg-" + lang + "-" + strings.Join(names, "|")
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
