// Package mediawiki talks to the action API of a MediaWiki site.
package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const (
	RequestTimeout  = 15 * time.Second
	MaxResponseSize = 4 * 1024 * 1024
)

// APIError is an error object returned by the API itself.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	if e.Info == "" {
		return "mediawiki: " + e.Code
	}
	return fmt.Sprintf("mediawiki: %s: %s", e.Code, e.Info)
}

// Message is one entry of meta=allmessages.
type Message struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Missing bool   `json:"missing,omitempty"`
}

// SearchHit is one entry of list=search.
type SearchHit struct {
	Title   string `json:"title"`
	PageID  int64  `json:"pageid"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type Client struct {
	endpoint  string
	http      *http.Client
	userAgent string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithContact adds a contact address to the User-Agent.
func WithContact(contact string) Option {
	return func(c *Client) { c.userAgent = UserAgent(contact) }
}

// NewClient returns a client for the api.php at endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:  endpoint,
		http:      &http.Client{Timeout: RequestTimeout},
		userAgent: UserAgent(""),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Endpoint returns the api.php URL the client was built with.
func (c *Client) Endpoint() string { return c.endpoint }

// UserAgent returns the header value sent with every request.
func (c *Client) UserAgent() string { return c.userAgent }

// AllMessages fetches the interface messages names in lang. The result keeps
// the order of names.
func (c *Client) AllMessages(ctx context.Context, names []string, lang string) ([]Message, error) {
	if len(names) == 0 {
		return nil, errors.New("mediawiki: no message names")
	}
	body, err := c.get(ctx, url.Values{
		"action":     {"query"},
		"meta":       {"allmessages"},
		"ammessages": {strings.Join(names, "|")},
		"amlang":     {lang},
	})
	if err != nil {
		return nil, err
	}
	list := gjson.GetBytes(body, "query.allmessages")
	if !list.IsArray() {
		return nil, errors.New("mediawiki: reply has no query.allmessages")
	}
	var out []Message
	list.ForEach(func(_, item gjson.Result) bool {
		fields := item.Map()
		out = append(out, Message{
			Name:    fields["name"].String(),
			Content: fields["*"].String(),
			Missing: item.Get("missing").Exists(),
		})
		return true
	})
	return out, nil
}

// Search runs a full-text search and returns at most limit hits.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.New("empty query")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	body, err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {q},
		"srlimit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, limit)
	gjson.GetBytes(body, "query.search").ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		hits = append(hits, SearchHit{
			Title:   title,
			PageID:  item.Get("pageid").Int(),
			Snippet: flattenHTML(item.Get("snippet").String()),
			Link:    c.ArticleURL(title),
		})
		return len(hits) < limit
	})
	return hits, nil
}

// ArticleURL returns the index.php URL for a page title.
func (c *Client) ArticleURL(title string) string {
	return c.indexURL(url.Values{"title": {titleKey(title)}})
}

// RenderURL returns the URL of the bare rendered HTML of a page.
func (c *Client) RenderURL(title string) string {
	return c.indexURL(url.Values{"title": {titleKey(title)}, "action": {"render"}})
}

func (c *Client) indexURL(v url.Values) string {
	base := strings.TrimSuffix(c.endpoint, "api.php")
	return base + "index.php?" + v.Encode()
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediawiki request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mediawiki status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("mediawiki read: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("mediawiki: reply is not JSON")
	}
	if apiErr := gjson.GetBytes(body, "error"); apiErr.Exists() {
		return nil, &APIError{
			Code: apiErr.Get("code").String(),
			Info: apiErr.Get("info").String(),
		}
	}
	return body, nil
}

// titleKey turns a display title into its URL form.
func titleKey(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// flattenHTML returns the visible text of an HTML fragment on one line.
func flattenHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return singleLine(fragment)
	}
	return singleLine(doc.Text())
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
