package web

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	MaxLinks        = 50
)

type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

type Fetcher struct {
	c         *colly.Collector
	engine    *fetch.Engine
	ttl       time.Duration
	userAgent string
}

type FetcherOption func(*fetcherConfig)

type fetcherConfig struct {
	userAgent string
	delay     time.Duration
}

// WithUserAgent sets the User-Agent header sent with every visit.
func WithUserAgent(ua string) FetcherOption {
	return func(c *fetcherConfig) { c.userAgent = ua }
}

// WithDelay sets the pause between two visits to the same host.
func WithDelay(d time.Duration) FetcherOption {
	return func(c *fetcherConfig) { c.delay = d }
}

// NewFetcher returns a page fetcher whose results are cached by engine for ttl.
func NewFetcher(engine *fetch.Engine, ttl time.Duration, opts ...FetcherOption) *Fetcher {
	cfg := fetcherConfig{userAgent: mediawiki.UserAgent(""), delay: 1 * time.Second}
	for _, o := range opts {
		o(&cfg)
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.delay,
	})
	c.SetRequestTimeout(RequestTimeout)
	return &Fetcher{c: c, engine: engine, ttl: ttl, userAgent: cfg.userAgent}
}

// CacheName is the engine name for a page URL.
func CacheName(rawURL string) string { return "page-" + rawURL }

// Fetch returns a summary of the page at rawURL. noCache forces a fresh visit
// that is not stored.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, noCache bool) (*PageSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}
	return fetch.Do(ctx, f.engine, fetch.Descriptor[PageSummary, *PageSummary]{
		Name: CacheName(rawURL),
		Request: func(ctx context.Context) (PageSummary, error) {
			return f.visit(ctx, rawURL)
		},
		Process: func(ps PageSummary) *PageSummary { return &ps },
		TTL:     f.ttl,
		NoCache: noCache,
	})
}

func (f *Fetcher) visit(ctx context.Context, rawURL string) (PageSummary, error) {
	// A clone shares the limiter and transport but gets its own callbacks.
	c := f.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", f.userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var pageHTML []byte
	var finalURL, contentType string
	c.OnResponse(func(r *colly.Response) {
		if ctx.Err() != nil {
			return
		}
		finalURL = r.Request.URL.String()
		pageHTML = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})

	if err := c.Visit(rawURL); err != nil {
		return PageSummary{}, err
	}
	if ctx.Err() != nil {
		return PageSummary{}, ctx.Err()
	}
	return summarize(pageHTML, finalURL, contentType)
}

// summarize turns a response body into a PageSummary. HTML is stripped of
// non-content elements and converted to Markdown; other text is kept as is.
func summarize(pageHTML []byte, finalURL, contentType string) (PageSummary, error) {
	if len(pageHTML) == 0 {
		return PageSummary{}, errors.New("empty response body")
	}

	if len(pageHTML) > MaxResponseSize {
		pageHTML = pageHTML[:MaxResponseSize]
		pageHTML = append(pageHTML, []byte("... [response trimmed due to size]")...)
	}

	lowerCT := strings.ToLower(contentType)
	isHTML := strings.Contains(lowerCT, "text/html")
	isText := strings.HasPrefix(lowerCT, "text/")

	if !isText {
		return PageSummary{}, errors.New("unsupported content type: binary files like images or PDFs are not supported")
	}
	if !isHTML {
		return PageSummary{URL: finalURL, Text: string(pageHTML)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return PageSummary{}, err
	}

	// Remove non-visible elements
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()
	// MediaWiki chrome that survives action=render
	doc.Find(".mw-editsection, #toc, .toc, .navbox, .reference, .mw-empty-elt").Remove()

	title := strings.TrimSpace(doc.Find("head > title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	desc := strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))

	plainText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	links := extractLinks(doc, finalURL)

	// Remove <a> elements after extracting links
	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()

	htmlStr, err := doc.Html()
	if err != nil {
		return PageSummary{}, err
	}
	bodyText := plainText
	if markdown, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
		bodyText = strings.TrimSpace(markdown)
	}

	return PageSummary{
		URL:         finalURL,
		Title:       title,
		Description: desc,
		Text:        bodyText,
		Links:       links,
	}, nil
}

// extractLinks returns up to MaxLinks absolute, fragment-free, sorted links.
func extractLinks(doc *goquery.Document, finalURL string) []string {
	base, _ := url.Parse(finalURL)
	canonicalSet := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && base != nil {
			u = base.ResolveReference(u)
		}
		// Exclude unwanted schemes
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		u.Fragment = ""
		canonicalSet[u.String()] = struct{}{}
	})

	links := make([]string, 0, len(canonicalSet))
	for canon := range canonicalSet {
		links = append(links, canon)
	}
	sort.Strings(links)
	if len(links) > MaxLinks {
		links = links[:MaxLinks]
	}
	return links
}
