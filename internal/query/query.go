// Package query implements the read-only Schema Query API over the live
// index snapshot. Every operation is a pure read; misses return empty
// results rather than errors.
package query

import (
	"log/slog"
	"time"

	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/models"
	"github.com/starford/themeschema/internal/querycache"
)

// Source supplies the snapshot queries run against.
type Source interface {
	Current() *index.Schema
}

// Recorder observes search traffic.
type Recorder interface {
	ObserveSearch(cacheHit bool)
}

// Weights are the related-property scoring terms.
type Weights struct {
	SameCategory  float64 `json:"sameCategory"`
	PathSegment   float64 `json:"pathSegment"`
	TitleContains float64 `json:"titleContains"`
	SameType      float64 `json:"sameType"`
	SharedVisual  float64 `json:"sharedVisual"`
}

// DefaultWeights returns the stock related-property weights.
func DefaultWeights() Weights {
	return Weights{
		SameCategory:  3,
		PathSegment:   1,
		TitleContains: 2,
		SameType:      1,
		SharedVisual:  0.5,
	}
}

// Options tunes the API.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// RelatedLimit is the default size of a related-properties result.
	RelatedLimit int
	// ConfidenceDivisor is the result count at which natural-language
	// confidence saturates at 1.
	ConfidenceDivisor float64
	// ManyResults is the count above which narrowing hints are suggested.
	ManyResults int
	CacheTTL    time.Duration
	Weights     Weights
}

// DefaultOptions returns the stock query options.
func DefaultOptions() Options {
	return Options{
		DefaultLimit:      100,
		MaxLimit:          1000,
		RelatedLimit:      5,
		ConfidenceDivisor: 5,
		ManyResults:       20,
		CacheTTL:          5 * time.Minute,
		Weights:           DefaultWeights(),
	}
}

// Option configures an API.
type Option func(*API)

// WithOptions overrides the default options.
func WithOptions(o Options) Option {
	return func(a *API) { a.opts = o }
}

// WithRecorder attaches a search recorder.
func WithRecorder(r Recorder) Option {
	return func(a *API) { a.rec = r }
}

// WithLogger sets the logger used for cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// API answers schema queries against the current snapshot.
type API struct {
	src    Source
	cache  querycache.Cache
	opts   Options
	rec    Recorder
	logger *slog.Logger
}

var emptySchema = index.Build(nil, index.Options{})

// New creates an API. cache may be nil.
func New(src Source, cache querycache.Cache, opts ...Option) *API {
	a := &API{src: src, cache: cache, opts: DefaultOptions(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = querycache.Noop{}
	}
	d := DefaultOptions()
	if a.opts.DefaultLimit <= 0 {
		a.opts.DefaultLimit = d.DefaultLimit
	}
	if a.opts.MaxLimit <= 0 {
		a.opts.MaxLimit = d.MaxLimit
	}
	a.opts.DefaultLimit = min(a.opts.DefaultLimit, a.opts.MaxLimit)
	if a.opts.RelatedLimit <= 0 {
		a.opts.RelatedLimit = d.RelatedLimit
	}
	if a.opts.ConfidenceDivisor <= 0 {
		a.opts.ConfidenceDivisor = d.ConfidenceDivisor
	}
	if a.opts.ManyResults <= 0 {
		a.opts.ManyResults = d.ManyResults
	}
	return a
}

// Options returns the effective options.
func (a *API) Options() Options { return a.opts }

func (a *API) schema() *index.Schema {
	if s := a.src.Current(); s != nil {
		return s
	}
	return emptySchema
}

// Ready reports whether a snapshot has been published.
func (a *API) Ready() bool { return a.src.Current() != nil }

// Checksum identifies the live snapshot, or "" before the first load.
func (a *API) Checksum() string {
	if s := a.src.Current(); s != nil {
		return s.Checksum()
	}
	return ""
}

// PropertyByID returns the property with the given id.
func (a *API) PropertyByID(id string) (models.PropertyMetadata, bool) {
	return a.schema().Property(id)
}

// PropertyByPath returns the property at path. Both the canonical
// "visualStyles.*.x" and the concrete "visualStyles.card.x" forms resolve.
func (a *API) PropertyByPath(path string) (models.PropertyMetadata, bool) {
	return a.schema().PropertyByPath(path)
}

// Stats returns the aggregate statistics of the live snapshot.
func (a *API) Stats() models.Stats {
	return a.schema().Stats()
}

// Relationships returns the relationship tables of the live snapshot.
func (a *API) Relationships() index.Relationships {
	return a.schema().Relationships()
}

func (a *API) resolve(s *index.Schema, ids []string) []models.PropertyMetadata {
	out := make([]models.PropertyMetadata, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.Property(id); ok {
			out = append(out, p)
		}
	}
	return out
}
