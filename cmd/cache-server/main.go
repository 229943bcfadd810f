package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leonardcser/wiki-fetch/internal/cache"
	"github.com/leonardcser/wiki-fetch/internal/config"
	"github.com/leonardcser/wiki-fetch/internal/logger"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Warnf("config: %v, using defaults", err)
	}

	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	_ = os.MkdirAll(filepath.Dir(cfg.DB), 0o755)
	_ = os.Remove(cfg.Socket)

	l, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		panic(err)
	}
	_ = os.Chmod(cfg.Socket, 0o600)

	store, err := cache.Open(cfg.DB, cache.Options{Bucket: "wiki-fetch"})
	if err != nil {
		_ = l.Close()
		panic(err)
	}
	defer store.Close()
	logger.Infof("cache daemon serving %s on %s", cfg.DB, cfg.Socket)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cache.Serve(ctx, l, store); err != nil && ctx.Err() == nil {
		logger.Errorf("cache daemon: %v", err)
	}
	_ = os.Remove(cfg.Socket)
	logger.Infof("cache daemon stopped")
}
