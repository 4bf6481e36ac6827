// Command storecheck verifies that the configured snippet store is reachable.
//
// It connects the same way the gateway does (which also provisions the
// createdAt index), lists the snippets collection, prints how many snippets
// exist and which one is newest, and disconnects. Nothing is written.
//
//	MONGODB_URL=mongodb://localhost:27017 go run ./cmd/storecheck
//
// The exit status is non-zero when the connection or the query fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kastor/polyglot-gateway/internal/config"
	"github.com/kastor/polyglot-gateway/internal/repository"
	"github.com/kastor/polyglot-gateway/internal/store"
	"github.com/kastor/polyglot-gateway/internal/store/backend"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storecheck: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()

	if err := run(context.Background(), cfg, logger, os.Stdout); err != nil {
		logger.Error("store check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	dialer, err := backend.NewDialer(cfg.Store.URL)
	if err != nil {
		return err
	}

	manager := store.NewManager(dialer, logger, store.WithConnectTimeout(cfg.Store.ConnectTimeout))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			logger.Warn("closing store", slog.String("error", err.Error()))
		}
	}()

	if _, err := manager.EnsureConnected(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "connected to %s (database %q)\n", manager.Backend(), store.DatabaseName)

	snippets, err := repository.NewSnippets(manager, logger).List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d snippet(s) in %q\n", len(snippets), store.SnippetsCollection)
	if len(snippets) > 0 {
		newest := snippets[0]
		fmt.Fprintf(out, "newest: %s %q created %s\n",
			newest.ID, newest.Title, newest.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
