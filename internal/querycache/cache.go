// Package querycache stores serialised query results. A cache is purely an
// optimisation: callers must produce identical results without one.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL; zero uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config selects and tunes a backend.
type Config struct {
	Backend string
	// Size bounds the number of entries of the memory backend.
	Size int
	TTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisPrefix is prepended to every key stored in Redis.
	RedisPrefix string
}

// DefaultConfig returns a bounded in-memory cache configuration.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendMemory,
		Size:        1000,
		TTL:         5 * time.Minute,
		RedisPrefix: "themeschema:",
	}
}

// New builds the backend named by cfg.Backend.
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewLRU(cfg.Size, cfg.TTL), nil
	case BackendRedis:
		r, err := NewRedis(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("querycache: unknown backend %q", cfg.Backend)
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(_ context.Context, key string) ([]byte, error) { return nil, ErrCacheMiss{Key: key} }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Clear(context.Context) error { return nil }
