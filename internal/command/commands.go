package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/leonardcser/wiki-fetch/internal/messages"
	"github.com/leonardcser/wiki-fetch/internal/web"
)

func messagesCommand(s **session) *cli.Command {
	return &cli.Command{
		Name:      "messages",
		Aliases:   []string{"msg"},
		Usage:     "print interface messages",
		ArgsUsage: "NAME [NAME...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				return errors.New("at least one message name is required")
			}
			sess := *s
			f := messages.NewFetcher(sess.engine, sess.wiki, sess.cfg.Lang)
			set, err := f.Fetch(ctx, messages.Query{Messages: names, NoCache: cmd.Root().Bool("no-cache")})
			if err != nil {
				return err
			}
			missing := make(map[string]bool)
			for _, n := range set.Missing() {
				missing[n] = true
			}
			for i, n := range set.Names() {
				if missing[n] {
					fmt.Fprintf(sess.deps.Out, "%s\t(undefined)\n", n)
					continue
				}
				fmt.Fprintf(sess.deps.Out, "%s\t%s\n", n, set.At(i))
			}
			return nil
		},
	}
}

func searchCommand(s **session) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search the wiki",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "maximum results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sess := *s
			searcher := web.NewSearcher(sess.wiki, sess.engine, searchTTL)
			results, err := searcher.Search(ctx, strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(sess.deps.Out, "%s\t%s\n", r.Title, r.Link)
			}
			return nil
		},
	}
}

func pageCommand(s **session) *cli.Command {
	return &cli.Command{
		Name:      "page",
		Usage:     "print a page as Markdown",
		ArgsUsage: "TITLE|URL",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if target == "" {
				return errors.New("a page title or URL is required")
			}
			sess := *s
			if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
				target = sess.wiki.RenderURL(target)
			}
			f := web.NewFetcher(sess.engine, pageTTL, web.WithUserAgent(sess.wiki.UserAgent()))
			ps, err := f.Fetch(ctx, target, cmd.Root().Bool("no-cache"))
			if err != nil {
				return err
			}
			if ps.Title != "" {
				fmt.Fprintf(sess.deps.Out, "# %s\n\n", ps.Title)
			}
			fmt.Fprintln(sess.deps.Out, ps.Text)
			return nil
		},
	}
}

func listCommand(s **session) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "show cached entries",
		Action: func(context.Context, *cli.Command) error {
			sess := *s
			entries, err := sess.engine.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(sess.deps.Out, "cache is empty")
				return nil
			}
			now := sess.now()
			for _, e := range entries {
				age := "unreadable"
				if e.Valid {
					age = humanize.RelTime(e.StoredAt, now, "ago", "from now")
				}
				fmt.Fprintf(sess.deps.Out, "%s\t%s\t%s\n", e.Name, humanize.Bytes(uint64(e.Size)), age)
			}
			return nil
		},
	}
}

func clearCommand(s **session) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "remove every cached entry",
		Action: func(context.Context, *cli.Command) error {
			sess := *s
			n, err := sess.engine.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(sess.deps.Out, "removed %d entries\n", n)
			return nil
		},
	}
}
