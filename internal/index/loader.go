package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/themeschema/internal/apperr"
	"github.com/starford/themeschema/internal/schema"
	"github.com/starford/themeschema/internal/snapshot"
	"github.com/starford/themeschema/internal/storage"
)

// SnapshotStore persists processed documents keyed by the fingerprint of
// the source and the ingestion options.
type SnapshotStore interface {
	Load(ctx context.Context, checksum string) (*snapshot.Document, error)
	Save(ctx context.Context, doc *snapshot.Document) error
	Prune(ctx context.Context, keep int) error
}

// LoaderConfig locates the schema source and tunes ingestion and indexing.
type LoaderConfig struct {
	File        string
	Definitions string
	Flatten     schema.Options
	Build       Options
	// Keep is how many snapshots the store retains after a save.
	Keep int
}

// Loader turns the schema source into a Schema, reusing a persisted
// snapshot when neither the source nor the ingestion options changed.
type Loader struct {
	store     storage.Provider
	snapshots SnapshotStore
	cfg       LoaderConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewLoader creates a loader. snapshots may be nil to always ingest.
func NewLoader(store storage.Provider, snapshots SnapshotStore, cfg LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Flatten.Logger = logger
	return &Loader{store: store, snapshots: snapshots, cfg: cfg, logger: logger, now: time.Now}
}

// Load reads the source and builds a fresh Schema. Only an unreadable or
// unparsable root schema is an error.
func (l *Loader) Load(ctx context.Context) (*Schema, error) {
	doc, err := l.Document(ctx)
	if err != nil {
		return nil, err
	}
	opts := l.cfg.Build
	opts.Checksum = doc.Checksum
	s := Build(doc.ToProperties(), opts)
	l.logger.Info("index: built",
		slog.String("checksum", doc.Checksum),
		slog.Int("properties", s.Len()),
		slog.Int("visuals", len(s.VisualTypes())))
	return s, nil
}

// Document returns the processed wire document for the current source,
// from the snapshot store when possible.
func (l *Loader) Document(ctx context.Context) (*snapshot.Document, error) {
	src, err := schema.LoadSource(l.store, l.cfg.File, l.cfg.Definitions, l.logger)
	if err != nil {
		return nil, fmt.Errorf("index: load source: %w", err)
	}

	key := l.cfg.Flatten.Fingerprint(src)
	if l.snapshots != nil {
		doc, err := l.snapshots.Load(ctx, key)
		switch {
		case err == nil:
			l.logger.Debug("snapshot: hit", slog.String("checksum", key))
			return doc, nil
		case !errors.Is(err, apperr.ErrNotFound):
			l.logger.Warn("snapshot: load failed",
				slog.String("checksum", key), slog.String("error", err.Error()))
		}
	}

	doc := snapshot.FromProperties(key, schema.Flatten(src, l.cfg.Flatten), l.now())

	if l.snapshots != nil {
		if err := l.snapshots.Save(ctx, doc); err != nil {
			l.logger.Warn("snapshot: save failed",
				slog.String("checksum", doc.Checksum), slog.String("error", err.Error()))
		} else if err := l.snapshots.Prune(ctx, max(1, l.cfg.Keep)); err != nil {
			l.logger.Warn("snapshot: prune failed", slog.String("error", err.Error()))
		}
	}
	return doc, nil
}
