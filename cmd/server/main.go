// Package main is the entry point for the Kastor Polyglot Suite API gateway.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (YAML file, then environment variables)
// 2. Build the logger
// 3. Hand both to internal/server and block until shutdown
//
// The store is not contacted here. The first snippet request connects.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/kastor/polyglot-gateway/internal/config"
	"github.com/kastor/polyglot-gateway/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// -config takes precedence over CONFIG_FILE. Both are optional: without a
	// file the defaults apply, overridden by PORT, MONGODB_URL, CORS_ORIGINS,
	// LOG_LEVEL, LOG_FORMAT and METRICS_ENABLED.
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No configured logger yet, so fall back to a plain one on stderr.
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
