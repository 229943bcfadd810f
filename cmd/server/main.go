package main

import (
	"context"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/wiki-fetch/internal/cache"
	"github.com/leonardcser/wiki-fetch/internal/config"
	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/logger"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
	"github.com/leonardcser/wiki-fetch/internal/messages"
	tools "github.com/leonardcser/wiki-fetch/internal/tools"
	"github.com/leonardcser/wiki-fetch/internal/version"
	web "github.com/leonardcser/wiki-fetch/internal/web"
)

const daemonBinary = "wiki-fetch-cache"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting Wiki Fetch MCP server")

	cfg, err := config.Load()
	if err != nil {
		logger.Warnf("config: %v, using defaults", err)
	}

	// Connect to cache daemon; start it if needed, then connect.
	logger.Infof("Attempting to connect to cache daemon at %s", cfg.Socket)
	client, err := connectCache(cfg.Socket)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		} else {
			logger.Infof("Cache daemon started successfully")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if c2, err2 := connectCache(cfg.Socket); err2 == nil {
				client = c2
				err = nil
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		if client == nil {
			logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
			panic(err)
		}
	}
	logger.Infof("Successfully connected to cache daemon")

	engine := fetch.New(client, fetch.WithDefaultTTL(cfg.TTL))
	if purged, err := engine.Init(fetch.InitOptions{Debug: cfg.Debug, PurgeOneIn: cfg.PurgeOneIn}); err != nil {
		logger.Warnf("startup cache purge failed: %v", err)
	} else if purged {
		logger.Infof("Purged fetch cache at startup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go clearOnSignal(ctx, engine)

	wiki := mediawiki.NewClient(cfg.API, mediawiki.WithContact(cfg.Contact))
	msgs := messages.NewFetcher(engine, wiki, cfg.Lang)
	fetcher := web.NewFetcher(engine, 15*time.Minute, web.WithUserAgent(wiki.UserAgent()))
	searcher := web.NewSearcher(wiki, engine, 5*time.Minute)
	logger.Infof("Initialized fetchers for %s", wiki.Endpoint())

	s := server.NewMCPServer(
		"Wiki Fetch",
		version.Version,
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	toolMessages := mcp.NewTool("wiki-messages",
		mcp.WithDescription(multiline(
			"Fetches localized interface messages from the configured wiki",
			"\nUsage notes:",
			"- Pass message names separated by | or commas",
			"- Results are cached for 24 hours per language and batch",
			"- Set no_cache to bypass the cache for one call",
		)),
		mcp.WithString("messages", mcp.Required(), mcp.Description("Message names, e.g. mainpage|search")),
		mcp.WithString("lang", mcp.Description("Language code; defaults to the configured language")),
		mcp.WithBoolean("no_cache", mcp.Description("Skip the cache for this call")),
	)
	s.AddTool(toolMessages, tools.MessagesHandler(msgs))

	toolPage := mcp.NewTool("wiki-page",
		mcp.WithDescription(multiline(
			"Fetches a wiki page and returns its content as Markdown",
			"\nUsage notes:",
			"- Accepts a page title on the configured wiki or a full URL",
			"- Includes a 15-minute cache for repeated access to the same page",
		)),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page title or URL")),
		mcp.WithBoolean("no_cache", mcp.Description("Skip the cache for this call")),
	)
	s.AddTool(toolPage, tools.PageHandler(fetcher, wiki))

	toolSearch := mcp.NewTool("wiki-search",
		mcp.WithDescription("Searches the configured wiki and returns matching pages"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (1-20)")),
	)
	s.AddTool(toolSearch, tools.SearchHandler(searcher))

	toolClear := mcp.NewTool("cache-clear",
		mcp.WithDescription("Removes every cached wiki result; other data in the store is kept"),
	)
	s.AddTool(toolClear, tools.ClearHandler(engine))
	logger.Infof("Registered tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// clearOnSignal empties the fetch cache each time the process gets SIGUSR1.
func clearOnSignal(ctx context.Context, engine *fetch.Engine) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if n, err := engine.Clear(); err != nil {
				logger.Errorf("cache clear failed: %v", err)
			} else {
				logger.Infof("Cleared %d cached entries on SIGUSR1", n)
			}
		}
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func connectCache(sock string) (cache.KV, error) {
	// quick probe
	conn, err := net.DialTimeout("unix", sock, 200*time.Millisecond)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return cache.NewClient(sock), nil
}

func startCacheDaemon() error {
	start := func(path string) error {
		cmd := exec.Command(path)
		cmd.Stdout = nil
		cmd.Stderr = nil
		cmd.Env = os.Environ()
		return cmd.Start()
	}

	// 1) Try cache binary next to this server executable (works with absolute invocation)
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return start(sibling)
		}
	}

	// 2) Try PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return start(path)
	}

	// 3) Try local binary in current working directory (best-effort)
	if _, err := os.Stat("./" + daemonBinary); err == nil {
		return start("./" + daemonBinary)
	}

	return exec.ErrNotFound
}
