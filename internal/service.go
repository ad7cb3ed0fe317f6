package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/observability"
	"github.com/starford/themeschema/internal/query"
	"github.com/starford/themeschema/internal/querycache"
	"github.com/starford/themeschema/internal/snapshot"
	"github.com/starford/themeschema/internal/sse"
	"github.com/starford/themeschema/internal/storage"
)

// service owns the live snapshot and everything derived from it.
type service struct {
	cfg    *Config
	logger *slog.Logger

	snapshots *snapshot.Store
	loader    *index.Loader
	holder    *index.Holder
	cache     querycache.Cache
	api       *query.API

	// Optional sinks for reload outcomes.
	metrics *observability.Metrics
	broker  *sse.Broker
}

// newService ingests the schema once and builds the query API over it. A
// first load that fails is fatal.
func newService(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*service, error) {
	s := &service{cfg: cfg, logger: logger, metrics: metrics}

	store, err := storage.NewFS(cfg.Schema.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var snaps index.SnapshotStore
	if path := cfg.Snapshot.SQLitePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
		s.snapshots, err = snapshot.Open(path)
		if err != nil {
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
		snaps = s.snapshots
	}

	s.loader = index.NewLoader(store, snaps, cfg.LoaderConfig(), logger)
	first, err := s.loader.Load(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("initial load: %w", err)
	}
	s.holder = index.NewHolder(first)

	s.cache, err = querycache.New(cfg.QueryCacheConfig())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("init query cache: %w", err)
	}

	opts := []query.Option{query.WithOptions(cfg.QueryOptions()), query.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, query.WithRecorder(metrics))
		metrics.RecordReload(observability.ReloadSuccess)
		metrics.SetSchemaSize(first.Len(), len(first.VisualTypes()))
	}
	s.api = query.New(s.holder, s.cache, opts...)

	logger.Info("service: schema loaded",
		slog.String("checksum", first.Checksum()),
		slog.Int("properties", first.Len()),
		slog.Int("visuals", len(first.VisualTypes())),
		slog.String("cache_backend", cfg.Cache.Backend))
	return s, nil
}

// reload rebuilds the snapshot from disk and publishes it. On failure the
// previous snapshot stays live.
func (s *service) reload(ctx context.Context) error {
	next, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("service: reload failed, keeping previous snapshot",
			slog.String("checksum", s.api.Checksum()),
			slog.String("error", err.Error()))
		if s.metrics != nil {
			s.metrics.RecordReload(observability.ReloadFailure)
		}
		if s.broker != nil {
			s.broker.PublishReloadFailed(err)
		}
		return err
	}

	prev := s.holder.Swap(next)
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("service: query cache clear failed", slog.String("error", err.Error()))
	}

	info := sse.ReloadInfo{
		Checksum:   next.Checksum(),
		Properties: next.Len(),
		Visuals:    len(next.VisualTypes()),
	}
	if s.metrics != nil {
		s.metrics.RecordReload(observability.ReloadSuccess)
		s.metrics.SetSchemaSize(info.Properties, info.Visuals)
	}
	if s.broker != nil {
		s.broker.PublishReload(info)
	}

	attrs := []any{
		slog.String("checksum", info.Checksum),
		slog.Int("properties", info.Properties),
		slog.Int("visuals", info.Visuals),
	}
	if prev != nil {
		attrs = append(attrs, slog.String("previous", prev.Checksum()))
	}
	s.logger.Info("service: schema reloaded", attrs...)
	return nil
}

// Close releases the cache and snapshot store.
func (s *service) Close() {
	if c, ok := s.cache.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn("service: cache close failed", slog.String("error", err.Error()))
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			s.logger.Warn("service: snapshot store close failed", slog.String("error", err.Error()))
		}
	}
}

func newLogger(app *application) *slog.Logger {
	return slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
}
