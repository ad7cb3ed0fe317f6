package querycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements a Redis-backed cache shared between instances.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// ErrEmptyPrefix is returned for a Redis cache without a key prefix. Clear
// would otherwise delete every key in the database.
var ErrEmptyPrefix = errors.New("querycache: redis prefix is required")

// NewRedis connects to cfg.RedisAddr and verifies the connection.
func NewRedis(cfg Config) (*Redis, error) {
	if cfg.RedisPrefix == "" {
		return nil, ErrEmptyPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("querycache: redis ping: %w", err)
	}
	return NewRedisWithClient(client, cfg.RedisPrefix, cfg.TTL)
}

// NewRedisWithClient wraps an existing client. prefix must not be empty.
func NewRedisWithClient(client *redis.Client, prefix string, ttl time.Duration) (*Redis, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultConfig().TTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}, nil
}

// Get retrieves a value from the cache
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}
	return value, nil
}

// Set stores a value in the cache with a TTL
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Delete removes a value from the cache
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Clear removes every key under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}
