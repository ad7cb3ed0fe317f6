// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/themeschema/internal/api"
	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/mcpserver"
	"github.com/starford/themeschema/internal/observability"
	"github.com/starford/themeschema/internal/snapshot"
	"github.com/starford/themeschema/internal/sse"
	"github.com/starford/themeschema/internal/storage"
)

// Run starts the HTTP server, and the schema watcher when enabled.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("schema_dir", cfg.Schema.Dir),
		slog.String("sqlite_path", cfg.Snapshot.SQLitePath),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Bool("watch", cfg.Schema.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.InitMetrics(reg)

	svc, err := newService(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer svc.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.broker = broker

	router := api.NewRouter(api.Deps{
		API:      svc.api,
		Logger:   logger,
		Events:   broker,
		Metrics:  metrics,
		Gatherer: reg,
		MaxAge:   cfg.App.HTTP.CacheMaxAge,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the snapshot when schema files change.
	if cfg.Schema.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, cfg.Schema.Dir, cfg.Schema.Debounce, logger, func() {
				_ = svc.reload(gCtx)
			})
			if err != nil {
				logger.Error("watcher: stopped", slog.String("error", err.Error()))
			}
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

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the query tools over MCP stdio. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	logger := newLogger(app)
	slog.SetDefault(logger)

	svc, err := newService(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	g, gCtx := errgroup.WithContext(ctx)
	if app.config.Schema.Watch {
		g.Go(func() error {
			if err := index.Watch(gCtx, app.config.Schema.Dir, app.config.Schema.Debounce, logger, func() {
				_ = svc.reload(gCtx)
			}); err != nil {
				logger.Error("watcher: stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	srv := mcpserver.New(svc.api, app.version)
	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	g.Go(func() error {
		// Returning stops the watcher once stdin closes.
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}

// Export ingests the schema and writes the processed snapshot document to
// out, or to stdout when out is "-".
func Export(ctx context.Context, out string, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(app)

	store, err := storage.NewFS(cfg.Schema.Dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	doc, err := index.NewLoader(store, nil, cfg.LoaderConfig(), logger).Document(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if out == "" || out == "-" {
		return snapshot.Encode(os.Stdout, doc)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := snapshot.Encode(f, doc); err != nil {
		f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	logger.Info("export: snapshot written",
		slog.String("path", out),
		slog.String("checksum", doc.Checksum),
		slog.Int("properties", len(doc.Properties)))
	return nil
}
