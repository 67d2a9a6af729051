package main

import (
	"log/slog"
	"os"

	"github.com/lucasjlepore/ridestats/config"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	cli := NewCLI(os.Stdout, logger, cfg)
	if err := cli.Run(os.Args[1:]); err != nil {
		logger.Error("ridestats failed", slog.Any("error", err))
		os.Exit(1)
	}
}
