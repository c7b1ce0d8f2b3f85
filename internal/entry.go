// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wikifeed/internal/api"
	"github.com/starford/wikifeed/internal/feed"
	"github.com/starford/wikifeed/internal/gitsync"
	"github.com/starford/wikifeed/internal/index"
	"github.com/starford/wikifeed/internal/mcpserver"
	"github.com/starford/wikifeed/internal/memo"
	"github.com/starford/wikifeed/internal/metrics"
	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/parser"
	"github.com/starford/wikifeed/internal/sse"
	"github.com/starford/wikifeed/internal/storage"
	"github.com/starford/wikifeed/internal/surface"
	"github.com/starford/wikifeed/internal/wikiservice"
)

const feedThrottle = 2 * time.Second

// components is the wired object graph shared by every command.
type components struct {
	store   *storage.FS
	parser  *parser.Parser
	repo    *gitsync.Client
	db      *index.DB
	broker  *sse.Broker
	metrics *metrics.Metrics
	svc     *wikiservice.Service
}

func (c *components) Close() {
	c.broker.Close()
	if err := c.db.Close(); err != nil {
		slog.Warn("close index failed", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build wires storage, parser, card cache, feed, sync client, index, broker
// and the service facade.
func (a *application) build(logger *slog.Logger) (*components, error) {
	cfg := a.config

	if err := os.MkdirAll(cfg.Wiki.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create wiki dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Wiki.Path, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	p := parser.New(store, parser.WithSummaryMaxLength(cfg.Wiki.SummaryMaxLength))

	var cacheOpts []memo.Option[string, models.Card]
	if cfg.Wiki.CheckModTime {
		cacheOpts = append(cacheOpts, memo.WithValidator(feed.StaleOnEdit(store.Stat)))
	}
	gen := feed.New(p,
		feed.WithCache(memo.New(cacheOpts...)),
		feed.WithAuthor(cfg.Wiki.DefaultAuthor),
		feed.WithRoadmap(cfg.Roadmap),
	)

	m := metrics.New()
	m.WatchCardCache(gen.CacheStats)

	repoPath := cfg.Repo.Path
	if repoPath == "" {
		repoPath = cfg.Wiki.Path
	}
	repo := gitsync.NewClient(repoPath,
		gitsync.WithRunner(gitsync.ExecRunner{Binary: cfg.Repo.GitBinary, Timeout: cfg.Repo.CommandTimeout}),
		gitsync.WithLogger(logger),
		gitsync.WithHistoryLimit(cfg.Repo.HistoryLimit),
		gitsync.WithObserver(m),
	)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	broker := sse.NewBroker(feedThrottle)

	svc := wikiservice.New(p, gen, repo, db,
		wikiservice.WithPublisher(broker),
		wikiservice.WithLogger(logger),
		wikiservice.WithIndexObserver(m.SetPagesIndexed),
	)

	return &components{
		store:   store,
		parser:  p,
		repo:    repo,
		db:      db,
		broker:  broker,
		metrics: m,
		svc:     svc,
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("wiki_path", cfg.Wiki.Path),
		slog.String("repo_path", cfg.Repo.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("watch", cfg.Wiki.Watch),
		slog.Duration("auto_sync_interval", cfg.Repo.AutoSyncInterval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// Run initial index sync.
	if _, err := c.svc.Reindex(ctx); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(c.metrics.Middleware)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(c))
	r.Handle("/metrics", c.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the wiki directory; edits drop cached cards and reach SSE clients.
	if cfg.Wiki.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, c.db, c.parser, c.store.Root(), logger, c.svc.PageChanged); err != nil {
				logger.Warn("wiki watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if interval := cfg.Repo.AutoSyncInterval; interval > 0 {
		g.Go(func() error {
			autoSync(gCtx, c.svc, interval, logger)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so background loops exit with the server.
var errShutdown = errors.New("shutdown")

// autoSync refreshes the wiki every interval until ctx is done.
func autoSync(ctx context.Context, svc *wikiservice.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := svc.Refresh(ctx)
			if !res.OK() {
				logger.Warn("auto sync failed", slog.String("error", res.Error))
			}
		}
	}
}

func readyHandler(c *components) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok"}

		pages, err := c.db.Count()
		if err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			body["error"] = err.Error()
		}
		body["pages"] = pages
		body["repo"] = c.svc.SyncStatus(r.Context()).HealthStatus

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// cliLogger logs to stderr so stdout stays free for command output.
func cliLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)
	return logger
}

// RunTimeline prints stats, the ranked timeline and the roadmap to the
// configured output.
func RunTimeline(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(cliLogger(app.config))
	if err != nil {
		return err
	}
	defer c.Close()

	cards, err := c.svc.Timeline(ctx)
	if err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	term := surface.NewTerminal(app.out)
	surface.RenderStats(term, c.svc.Stats(ctx))
	surface.RenderTimeline(term, cards)
	surface.RenderRoadmap(term, c.svc.Roadmap(ctx))
	return nil
}

// RunSync pulls the repository once and prints the result as JSON.
// A failed pull is reported and also returned as an error.
func RunSync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(cliLogger(app.config))
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.svc.ForceSync(ctx)
	if err := writeIndented(app.out, res); err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("sync failed: %s", res.Error)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := cliLogger(app.config)
	c, err := app.build(logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.svc.Reindex(ctx); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(c.svc, app.version).ServeStdio()
}
