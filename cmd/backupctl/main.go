package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/backupctl/internal/config"
	"github.com/andresuchdata/backupctl/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := config.Load()

	// Commands stop on SIGINT/SIGTERM so partial downloads are cleaned up.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg)
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		logger.Log.Error().Err(err).Msg("backupctl failed")
		os.Exit(1)
	}
}
