// Package command builds the wikifetch command line.
package command

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/leonardcser/wiki-fetch/internal/cache"
	"github.com/leonardcser/wiki-fetch/internal/config"
	"github.com/leonardcser/wiki-fetch/internal/fetch"
	"github.com/leonardcser/wiki-fetch/internal/logger"
	"github.com/leonardcser/wiki-fetch/internal/mediawiki"
	"github.com/leonardcser/wiki-fetch/internal/version"
)

// Opener returns the store a run should use and a function releasing it.
type Opener func(cfg config.Config, ephemeral bool) (cache.KV, func() error, error)

// Deps are the parts of the environment a run needs.
type Deps struct {
	Out    io.Writer
	Err    io.Writer
	Config config.Config
	Open   Opener
	// Now is used for relative times in listings. Nil means time.Now.
	Now    func() time.Time
}

// session is what every subcommand works with once flags are parsed.
type session struct {
	deps   Deps
	cfg    config.Config
	engine *fetch.Engine
	wiki   *mediawiki.Client
	close  func() error
}

func (s *session) now() time.Time {
	if s.deps.Now != nil {
		return s.deps.Now()
	}
	return time.Now()
}

// InitApp returns the root command.
func InitApp(deps Deps) *cli.Command {
	if deps.Open == nil {
		deps.Open = OpenStore
	}
	var s *session

	app := &cli.Command{
		Name:      "wikifetch",
		Usage:     "cached access to MediaWiki messages, pages and search",
		Version:   version.Version,
		Writer:    deps.Out,
		ErrWriter: deps.Err,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "api.php endpoint", Value: deps.Config.API},
			&cli.StringFlag{Name: "lang", Aliases: []string{"l"}, Usage: "message language", Value: deps.Config.Lang},
			&cli.BoolFlag{Name: "no-cache", Aliases: []string{"n"}, Usage: "bypass the cache for this run"},
			&cli.BoolFlag{Name: "ephemeral", Usage: "use an in-memory cache that is dropped on exit"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "warn", Sources: cli.EnvVars("WIKI_FETCH_LOG_LEVEL")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.InitWriter(deps.Err, cmd.String("log-level"))
			cfg := deps.Config
			cfg.API = cmd.String("api")
			cfg.Lang = cmd.String("lang")

			kv, closeFn, err := deps.Open(cfg, cmd.Bool("ephemeral"))
			if err != nil {
				return ctx, fmt.Errorf("open cache: %w", err)
			}
			s = &session{
				deps:   deps,
				cfg:    cfg,
				engine: fetch.New(kv, fetch.WithDefaultTTL(cfg.TTL)),
				wiki:   mediawiki.NewClient(cfg.API, mediawiki.WithContact(cfg.Contact)),
				close:  closeFn,
			}
			logger.Debugf("wikifetch: using %s", s.wiki.Endpoint())
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			if s == nil || s.close == nil {
				return nil
			}
			return s.close()
		},
	}

	app.Commands = []*cli.Command{
		messagesCommand(&s),
		searchCommand(&s),
		pageCommand(&s),
		listCommand(&s),
		clearCommand(&s),
	}
	return app
}

// OpenStore prefers the cache daemon, falls back to opening the bbolt file
// directly, and uses memory when ephemeral is set.
func OpenStore(cfg config.Config, ephemeral bool) (cache.KV, func() error, error) {
	if ephemeral {
		return cache.NewMemory(), nil, nil
	}
	if conn, err := net.DialTimeout("unix", cfg.Socket, cache.DialTimeout); err == nil {
		_ = conn.Close()
		return cache.NewClient(cfg.Socket), nil, nil
	}
	store, err := cache.Open(cfg.DB, cache.Options{Bucket: "wiki-fetch"})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
