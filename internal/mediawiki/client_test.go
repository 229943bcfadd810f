package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiServer answers every request with body and records the last query.
func apiServer(t *testing.T, status int, body string) (*Client, *url.Values, *http.Header) {
	t.Helper()
	var got url.Values
	var hdr http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		hdr = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/w/api.php", WithHTTPClient(srv.Client()), WithContact("ops@example.org")), &got, &hdr
}

func TestAllMessages(t *testing.T) {
	c, got, hdr := apiServer(t, http.StatusOK, `{
		"batchcomplete": "",
		"query": {"allmessages": [
			{"name": "mainpage", "normalizedname": "mainpage", "*": "Main Page"},
			{"name": "no-such-msg", "normalizedname": "no-such-msg", "missing": ""},
			{"name": "search", "normalizedname": "search", "*": "Search"}
		]}
	}`)

	msgs, err := c.AllMessages(context.Background(), []string{"mainpage", "no-such-msg", "search"}, "de")
	require.NoError(t, err)
	assert.Equal(t, []Message{
		{Name: "mainpage", Content: "Main Page"},
		{Name: "no-such-msg", Missing: true},
		{Name: "search", Content: "Search"},
	}, msgs)

	assert.Equal(t, "query", got.Get("action"))
	assert.Equal(t, "allmessages", got.Get("meta"))
	assert.Equal(t, "mainpage|no-such-msg|search", got.Get("ammessages"))
	assert.Equal(t, "de", got.Get("amlang"))
	assert.Equal(t, "json", got.Get("format"))
	assert.Contains(t, hdr.Get("User-Agent"), "wiki-fetch/")
	assert.Contains(t, hdr.Get("User-Agent"), "ops@example.org")
}

func TestAllMessagesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		names  []string
		check  func(*testing.T, error)
	}{
		{
			name:   "api error",
			status: http.StatusOK,
			body:   `{"error":{"code":"badvalue","info":"Unrecognized value for parameter \"amlang\"."}}`,
			names:  []string{"a"},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "badvalue", apiErr.Code)
				assert.Contains(t, err.Error(), "Unrecognized value")
			},
		},
		{
			name:   "http status",
			status: http.StatusBadGateway,
			body:   `oops`,
			names:  []string{"a"},
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "mediawiki status 502")
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>maintenance</html>`,
			names:  []string{"a"},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "not JSON")
			},
		},
		{
			name:   "missing list",
			status: http.StatusOK,
			body:   `{"batchcomplete":""}`,
			names:  []string{"a"},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "query.allmessages")
			},
		},
		{
			name:   "no names",
			status: http.StatusOK,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "no message names")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := apiServer(t, tt.status, tt.body)
			_, err := c.AllMessages(context.Background(), tt.names, "en")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestAllMessagesTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/w/api.php")
	_, err := c.AllMessages(context.Background(), []string{"a"}, "en")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "mediawiki request:"))
}

func TestSearch(t *testing.T) {
	c, got, _ := apiServer(t, http.StatusOK, `{"query":{"search":[
		{"ns":0,"title":"Go (programming language)","pageid":25039021,"snippet":"<span class=\"searchmatch\">Go</span> is a   statically\ntyped language"},
		{"ns":0,"title":"Gopher","pageid":12,"snippet":"a rodent"},
		{"ns":0,"title":"Third","pageid":13,"snippet":""}
	]}}`)

	hits, err := c.Search(context.Background(), "  golang ", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Go is a statically typed language", hits[0].Snippet)
	assert.Equal(t, int64(25039021), hits[0].PageID)
	assert.True(t, strings.HasSuffix(hits[0].Link, "/w/index.php?title=Go_%28programming_language%29"), hits[0].Link)
	assert.Equal(t, "golang", got.Get("srsearch"))
	assert.Equal(t, "2", got.Get("srlimit"))
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := NewClient("http://unused/api.php").Search(context.Background(), "   ", 5)
	assert.EqualError(t, err, "empty query")
}

func TestURLs(t *testing.T) {
	c := NewClient("https://dev.fandom.com/api.php")
	assert.Equal(t, "https://dev.fandom.com/api.php", c.Endpoint())
	assert.Equal(t, "https://dev.fandom.com/index.php?title=Fetch_library", c.ArticleURL("Fetch library"))
	assert.Equal(t, "https://dev.fandom.com/index.php?action=render&title=Fetch", c.RenderURL("Fetch"))
}

func TestUserAgent(t *testing.T) {
	assert.NotContains(t, UserAgent(""), ";")
	assert.Contains(t, UserAgent("me@example.org"), "; me@example.org)")
}
