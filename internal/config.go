package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/themeschema/internal/index"
	"github.com/starford/themeschema/internal/query"
	"github.com/starford/themeschema/internal/querycache"
	"github.com/starford/themeschema/internal/schema"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Schema   SchemaConfig      `yaml:"schema"`
	Index    IndexConfig       `yaml:"index"`
	Query    QueryConfig       `yaml:"query"`
	Cache    CacheConfig       `yaml:"cache"`
	Snapshot SnapshotConfig    `yaml:"snapshot"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Query.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Snapshot.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CacheMaxAge is the Cache-Control max-age of API reads, in seconds.
	CacheMaxAge int `yaml:"cache_max_age"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CacheMaxAge, validation.Min(0)),
	)
}

// SchemaConfig locates the theme schema on disk.
type SchemaConfig struct {
	Dir         string        `yaml:"dir"`
	File        string        `yaml:"file"`
	Definitions string        `yaml:"definitions"`
	Watch       bool          `yaml:"watch"`
	Debounce    time.Duration `yaml:"debounce"`
	MaxDepth    int           `yaml:"max_depth"`
	StateFields []string      `yaml:"state_fields"`
}

// Validate validates the schema configuration.
func (c *SchemaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.File, validation.Required),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.StateFields, validation.Required, validation.Each(validation.Required)),
	)
}

// IndexConfig tunes snapshot construction.
type IndexConfig struct {
	FuzzyThreshold float64          `yaml:"fuzzy_threshold"`
	TopProperties  int              `yaml:"top_properties"`
	Complexity     ComplexityConfig `yaml:"complexity"`
}

// ComplexityConfig holds the property-count lower bounds of the medium and
// high visual tiers.
type ComplexityConfig struct {
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.FuzzyThreshold, validation.Required, validation.Min(0.0).Exclusive(), validation.Max(1.0)),
		validation.Field(&c.TopProperties, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Complexity,
		validation.Field(&c.Complexity.Medium, validation.Required, validation.Min(1)),
		validation.Field(&c.Complexity.High, validation.Required, validation.Min(c.Complexity.Medium+1)),
	)
}

// QueryConfig tunes the query API.
type QueryConfig struct {
	DefaultLimit      int           `yaml:"default_limit"`
	MaxLimit          int           `yaml:"max_limit"`
	RelatedLimit      int           `yaml:"related_limit"`
	ConfidenceDivisor float64       `yaml:"confidence_divisor"`
	ManyResults       int           `yaml:"many_results"`
	Related           WeightsConfig `yaml:"related"`
}

// WeightsConfig holds the related-property scoring weights.
type WeightsConfig struct {
	SameCategory  float64 `yaml:"same_category"`
	PathSegment   float64 `yaml:"path_segment"`
	TitleContains float64 `yaml:"title_contains"`
	SameType      float64 `yaml:"same_type"`
	SharedVisual  float64 `yaml:"shared_visual"`
}

// Validate validates the query configuration.
func (c *QueryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1), validation.Max(c.MaxLimit)),
		validation.Field(&c.RelatedLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.ConfidenceDivisor, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.ManyResults, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	w := &c.Related
	return validation.ValidateStruct(w,
		validation.Field(&w.SameCategory, validation.Min(0.0)),
		validation.Field(&w.PathSegment, validation.Min(0.0)),
		validation.Field(&w.TitleContains, validation.Min(0.0)),
		validation.Field(&w.SameType, validation.Min(0.0)),
		validation.Field(&w.SharedVisual, validation.Min(0.0)),
	)
}

// CacheConfig selects the search result cache backend.
//
// Backend is one of:
//   - "memory" (default): bounded in-process LRU with TTL.
//   - "redis": shared cache; Redis.Addr must be set.
//   - "none": caching disabled.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the Redis connection used by the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	// Normalise empty backend to "memory".
	if c.Backend == "" {
		c.Backend = querycache.BackendMemory
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(
			querycache.BackendMemory, querycache.BackendRedis, querycache.BackendNone)),
		validation.Field(&c.Size, validation.When(c.Backend == querycache.BackendMemory, validation.Required, validation.Min(1))),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Backend == querycache.BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("cache: backend is %q but redis.addr is empty", querycache.BackendRedis)
	}
	return validation.ValidateStruct(&c.Redis,
		validation.Field(&c.Redis.DB, validation.Min(0)),
		validation.Field(&c.Redis.Prefix, validation.When(c.Backend == querycache.BackendRedis, validation.Required)),
	)
}

// SnapshotConfig controls on-disk persistence of processed snapshots.
// An empty SQLitePath disables it.
type SnapshotConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	Keep       int    `yaml:"keep"`
}

// Validate validates the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Keep, validation.When(c.SQLitePath != "", validation.Required, validation.Min(1))),
	)
}

// LoaderConfig maps the schema and index sections onto the loader.
func (c *Config) LoaderConfig() index.LoaderConfig {
	return index.LoaderConfig{
		File:        c.Schema.File,
		Definitions: c.Schema.Definitions,
		Flatten: schema.Options{
			MaxDepth:    c.Schema.MaxDepth,
			StateFields: c.Schema.StateFields,
		},
		Build: index.Options{
			FuzzyThreshold:   c.Index.FuzzyThreshold,
			TopProperties:    c.Index.TopProperties,
			MediumComplexity: c.Index.Complexity.Medium,
			HighComplexity:   c.Index.Complexity.High,
		},
		Keep: c.Snapshot.Keep,
	}
}

// QueryOptions maps the query and cache sections onto the query API.
func (c *Config) QueryOptions() query.Options {
	w := c.Query.Related
	return query.Options{
		DefaultLimit:      c.Query.DefaultLimit,
		MaxLimit:          c.Query.MaxLimit,
		RelatedLimit:      c.Query.RelatedLimit,
		ConfidenceDivisor: c.Query.ConfidenceDivisor,
		ManyResults:       c.Query.ManyResults,
		CacheTTL:          c.Cache.TTL,
		Weights: query.Weights{
			SameCategory:  w.SameCategory,
			PathSegment:   w.PathSegment,
			TitleContains: w.TitleContains,
			SameType:      w.SameType,
			SharedVisual:  w.SharedVisual,
		},
	}
}

// QueryCacheConfig maps the cache section onto the cache factory.
func (c *Config) QueryCacheConfig() querycache.Config {
	return querycache.Config{
		Backend:       c.Cache.Backend,
		Size:          c.Cache.Size,
		TTL:           c.Cache.TTL,
		RedisAddr:     c.Cache.Redis.Addr,
		RedisPassword: c.Cache.Redis.Password,
		RedisDB:       c.Cache.Redis.DB,
		RedisPrefix:   c.Cache.Redis.Prefix,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	w := query.DefaultWeights()
	q := query.DefaultOptions()
	qc := querycache.DefaultConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:        8080,
				CacheMaxAge: 60,
			},
		},
		Schema: SchemaConfig{
			Dir:         "./schema",
			File:        "theme.schema.json",
			Definitions: "definitions",
			Watch:       true,
			Debounce:    index.DefaultDebounce,
			MaxDepth:    schema.DefaultMaxDepth,
			StateFields: append([]string(nil), schema.DefaultStateFields...),
		},
		Index: IndexConfig{
			FuzzyThreshold: index.DefaultFuzzyThreshold,
			TopProperties:  index.DefaultTopProperties,
			Complexity: ComplexityConfig{
				Medium: index.DefaultMediumComplexity,
				High:   index.DefaultHighComplexity,
			},
		},
		Query: QueryConfig{
			DefaultLimit:      q.DefaultLimit,
			MaxLimit:          q.MaxLimit,
			RelatedLimit:      q.RelatedLimit,
			ConfidenceDivisor: q.ConfidenceDivisor,
			ManyResults:       q.ManyResults,
			Related: WeightsConfig{
				SameCategory:  w.SameCategory,
				PathSegment:   w.PathSegment,
				TitleContains: w.TitleContains,
				SameType:      w.SameType,
				SharedVisual:  w.SharedVisual,
			},
		},
		Cache: CacheConfig{
			Backend: qc.Backend,
			Size:    qc.Size,
			TTL:     qc.TTL,
			Redis: RedisConfig{
				Prefix: qc.RedisPrefix,
			},
		},
		Snapshot: SnapshotConfig{
			SQLitePath: "./data/snapshots.db",
			Keep:       3,
		},
	}
}
