package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
	// Invalidate removes every key matching a glob pattern such as "timeline:*".
	Invalidate(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Fetch returns the JSON value cached under key, or calls load and caches its result for ttl.
// The cache is best-effort: read and decode failures count as misses and write failures are
// logged, so only load can fail the call. A nil Cache always loads. The boolean reports a hit.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := Load[T](ctx, c, key); ok {
		return v, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	Save(ctx, c, key, v, ttl)
	return v, false, nil
}

// Load decodes the JSON value cached under key. Read and decode failures are logged and
// reported as a miss.
func Load[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}
	raw, found, err := c.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	if !found {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("cache entry undecodable, reloading", "key", key)
		var zero T
		return zero, false
	}
	return v, true
}

// Save caches v as JSON under key for ttl. Failures are logged.
func Save(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
