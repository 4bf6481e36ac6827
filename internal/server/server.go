// Package server is the gateway's composition root: it builds the store
// connection manager, the snippet repository and every handler, mounts them
// on a chi router behind the shared middleware, and runs the HTTP server
// until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kastor/polyglot-gateway/internal/config"
	"github.com/kastor/polyglot-gateway/internal/handler"
	"github.com/kastor/polyglot-gateway/internal/middleware"
	"github.com/kastor/polyglot-gateway/internal/repository"
	"github.com/kastor/polyglot-gateway/internal/store"
	"github.com/kastor/polyglot-gateway/internal/store/backend"
)

// Server represents the HTTP server and all its dependencies.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → backend.NewDialer → store.Manager → repository.Snippets → handler.SnippetHandler → chi routes
//
// Each layer receives the one below it through its constructor and only sees
// a narrow interface of it, so handler tests use a fake repository and
// repository tests use a fake connector.
//
// The Server owns the store Manager: nothing connects at construction time,
// the first snippet request does, and Start closes the connection on the way out.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   *store.Manager
	metrics *middleware.Metrics
	reg     *prometheus.Registry
}

// New wires the gateway described by cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	dialer, err := backend.NewDialer(cfg.Store.URL)
	if err != nil {
		return nil, fmt.Errorf("selecting store backend: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	// PRIVATE REGISTRY:
	// Metrics go on a registry owned by this Server instead of the global
	// default one, so several Servers (one per test) can coexist without
	// duplicate-registration panics.
	managerOpts := []store.Option{store.WithConnectTimeout(cfg.Store.ConnectTimeout)}
	if cfg.Metrics.Enabled {
		s.reg = prometheus.NewRegistry()
		s.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = middleware.NewMetrics(s.reg)
		managerOpts = append(managerOpts, store.WithConnectCounter(s.metrics.StoreConnects))
	}
	s.store = store.NewManager(dialer, logger, managerOpts...)

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
// GET    /health          → liveness, never touches the store
// GET    /api/test        → smoke test
// GET    /api/snippets    → list snippets, newest first
// POST   /api/snippets    → create snippet
// POST   /api/scrape      → scrape mock
// POST   /api/monitor     → monitor mock
// POST   /api/summarize   → summarize mock
// GET    /metrics         → Prometheus exposition (when enabled)
//
// MIDDLEWARE ORDER:
// RequestID → RealIP → Recoverer → Logger → Metrics → CORS
//
// RequestID runs first so every later log line can carry the id. CORS runs
// last among the router-level middleware but still before routing, so a
// preflight OPTIONS is answered even though no route registers OPTIONS.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	if s.metrics != nil {
		s.router.Use(s.metrics.Handler)
	}
	s.router.Use(middleware.CORS(s.config.CORS.AllowedOrigins))

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found"}` + "\n"))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"Method Not Allowed"}` + "\n"))
	})

	s.router.Get("/health", handler.HandleHealth)

	snippets := repository.NewSnippets(s.store, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippets, s.logger)
	scrapeHandler := handler.NewScrapeHandler(s.logger)
	monitorHandler := handler.NewMonitorHandler(s.logger)
	summarizeHandler := handler.NewSummarizeHandler(s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/test", handler.HandleTest)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
		})

		r.Post("/scrape", scrapeHandler.HandleScrape)
		r.Post("/monitor", monitorHandler.HandleMonitor)
		r.Post("/summarize", summarizeHandler.HandleSummarize)
	})

	if s.reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store connection.
func (s *Server) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// within the shutdown timeout and closes the store connection.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("API gateway starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("store", s.store.Backend()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			runErr = fmt.Errorf("graceful shutdown failed: %w", err)
		} else {
			s.logger.Info("server stopped gracefully")
		}
	}

	// Requests are drained (or abandoned) by now, so the store can go.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error("closing store", slog.String("error", err.Error()))
	}

	return runErr
}
