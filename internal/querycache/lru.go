package querycache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is a size-bounded in-process cache whose entries expire after a
// fixed TTL. It is safe for concurrent use.
type LRU struct {
	entries *expirable.LRU[string, []byte]
}

// NewLRU creates a cache holding at most size entries for ttl each.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultConfig().Size
	}
	if ttl <= 0 {
		ttl = DefaultConfig().TTL
	}
	return &LRU{entries: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value from the cache
func (c *LRU) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.entries.Get(key)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	return v, nil
}

// Set stores a value. Entries share the TTL fixed at construction, so the
// per-call ttl is ignored.
func (c *LRU) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.entries.Add(key, value)
	return nil
}

// Delete removes a value from the cache
func (c *LRU) Delete(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Clear removes all values from the cache
func (c *LRU) Clear(_ context.Context) error {
	c.entries.Purge()
	return nil
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	return c.entries.Len()
}
