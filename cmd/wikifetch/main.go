package main

import (
	"context"
	"fmt"
	"os"

	"github.com/leonardcser/wiki-fetch/internal/command"
	"github.com/leonardcser/wiki-fetch/internal/config"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: print to stderr and continue with defaults.
		fmt.Fprintln(os.Stderr, err)
	}

	app := command.InitApp(command.Deps{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Config: cfg,
	})
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
