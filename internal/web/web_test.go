package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/wiki-fetch/internal/cache"
	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
)

const samplePage = `<!doctype html>
<html><head><title>Fetch - Dev Wiki</title><meta name="description" content="Library for caching API requests"></head>
<body>
<header>site header</header>
<h1>Fetch</h1>
<span class="mw-editsection">[edit]</span>
<p>Hello <b>world</b>.</p>
<script>alert(1)</script>
<a href="/wiki/Other#top">Other</a>
<a href="https://example.org/x">External</a>
<a href="mailto:a@b.c">Mail</a>
<a href="javascript:void(0)">JS</a>
<footer>site footer</footer>
</body></html>`

func TestSummarizeHTML(t *testing.T) {
	ps, err := summarize([]byte(samplePage), "https://dev.example.org/wiki/Fetch", "text/html; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, "Fetch - Dev Wiki", ps.Title)
	assert.Equal(t, "Library for caching API requests", ps.Description)
	assert.Equal(t, []string{"https://dev.example.org/wiki/Other", "https://example.org/x"}, ps.Links)
	assert.Contains(t, ps.Text, "**world**")
	assert.NotContains(t, ps.Text, "alert")
	assert.NotContains(t, ps.Text, "[edit]")
	assert.NotContains(t, ps.Text, "site footer")
}

func TestSummarizeOtherContent(t *testing.T) {
	ps, err := summarize([]byte("plain words"), "https://x/y.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain words", ps.Text)

	_, err = summarize([]byte{0x89, 'P', 'N', 'G'}, "https://x/y.png", "image/png")
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = summarize(nil, "https://x/", "text/html")
	assert.EqualError(t, err, "empty response body")
}

func TestSummarizeTitleFallsBackToHeading(t *testing.T) {
	ps, err := summarize([]byte(`<div><h1>Rendered</h1><p>body</p></div>`), "https://x/", "text/html")
	require.NoError(t, err)
	assert.Equal(t, "Rendered", ps.Title)
}

func newEngine() (*fetch.Engine, *cache.Memory) {
	kv := cache.NewMemory()
	return fetch.New(kv), kv
}

func TestFetcherCachesPages(t *testing.T) {
	var hits atomic.Int32
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e, kv := newEngine()
	f := NewFetcher(e, 15*time.Minute, WithDelay(0), WithUserAgent("wiki-fetch-test"))
	ctx := context.Background()

	first, err := f.Fetch(ctx, srv.URL+"/wiki/Fetch", false)
	require.NoError(t, err)
	second, err := f.Fetch(ctx, srv.URL+"/wiki/Fetch", false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, "wiki-fetch-test", ua.Load())
	_, err = kv.Get(e.Key(CacheName(srv.URL + "/wiki/Fetch")))
	assert.NoError(t, err)

	_, err = f.Fetch(ctx, srv.URL+"/wiki/Fetch", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e, kv := newEngine()
	f := NewFetcher(e, time.Minute, WithDelay(0))

	_, err := f.Fetch(context.Background(), "ftp://example.org", false)
	assert.EqualError(t, err, "url must start with http:// or https://")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing", false)
	assert.Error(t, err)
	keys, _ := kv.Keys()
	assert.Empty(t, keys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, srv.URL, false)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeSearch struct {
	calls int
	hits  []mediawiki.SearchHit
	err   error
	limit int
}

func (f *fakeSearch) Search(_ context.Context, _ string, limit int) ([]mediawiki.SearchHit, error) {
	f.calls++
	f.limit = limit
	return f.hits, f.err
}

func TestSearcher(t *testing.T) {
	src := &fakeSearch{hits: []mediawiki.SearchHit{
		{Title: "Fetch", Snippet: "caching library", Link: "https://w/index.php?title=Fetch"},
		{Title: ""},
	}}
	e, _ := newEngine()
	s := NewSearcher(src, e, 5*time.Minute)

	for range 2 {
		results, err := s.Search(context.Background(), " fetch ", 0)
		require.NoError(t, err)
		assert.Equal(t, []SearchResult{{Title: "Fetch", Description: "caching library", Link: "https://w/index.php?title=Fetch"}}, results)
	}
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 10, src.limit)

	_, err := s.Search(context.Background(), "  ", 3)
	assert.EqualError(t, err, "empty query")
}

func TestSearcherFailure(t *testing.T) {
	boom := errors.New("boom")
	e, _ := newEngine()
	_, err := NewSearcher(&fakeSearch{err: boom}, e, time.Minute).Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, boom)
}
