// Package cache is a thin JSON cache over Redis for read-path API
// responses. A nil client yields a disabled cache: every Get misses and
// every Set is a no-op, so callers never branch on whether caching is
// on.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or the cache is
// disabled.
var ErrMiss = errors.New("cache miss")

// Config controls connection and expiry.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// Cache wraps a Redis client with JSON marshalling and prefix
// invalidation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection. Use Disabled for
// a no-op cache.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Cache, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return &Cache{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// Disabled returns a cache that never hits.
func Disabled() *Cache {
	return &Cache{logger: zap.NewNop()}
}

// Enabled reports whether a backing client exists.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Get unmarshals the cached value for key into dest. Returns ErrMiss
// when absent; any other Redis failure is also reported as a miss after
// logging, so a cache outage degrades to direct reads.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c.client == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return ErrMiss
	}
	return nil
}

// Set stores value under key for the configured TTL. Failures are
// logged, never surfaced.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePattern deletes every key matching the glob pattern using
// incremental SCAN, so it is safe against large keyspaces.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache delete failed", zap.String("pattern", pattern), zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// InvalidatePage drops every cached read derived from one page.
func (c *Cache) InvalidatePage(ctx context.Context, pageID string) {
	c.InvalidatePattern(ctx, "page:"+pageID+"*")
	c.InvalidatePattern(ctx, "pages:list:*")
}

// PageKey is the cache key for one page detail response.
func PageKey(pageID string) string {
	return "page:" + pageID
}

// PagePostsKey is the cache key for one page's post window.
func PagePostsKey(pageID string, page, limit int) string {
	return fmt.Sprintf("page:%s:posts:%d:%d", pageID, page, limit)
}

// PageEmployeesKey is the cache key for one page's employee window.
func PageEmployeesKey(pageID string, page, limit int) string {
	return fmt.Sprintf("page:%s:employees:%d:%d", pageID, page, limit)
}

// PageInsightsKey is the cache key for one page's engagement stats.
func PageInsightsKey(pageID string) string {
	return "page:" + pageID + ":insights"
}

// ListKey is the cache key for a filtered page listing.
func ListKey(name, industry string, minFollowers, maxFollowers int64, page, limit int) string {
	return fmt.Sprintf("pages:list:%s:%s:%d:%d:%d:%d",
		name, industry, minFollowers, maxFollowers, page, limit)
}
