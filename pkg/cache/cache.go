// Package cache is a Redis cache-aside layer for short-lived lookups such as
// web search results and the library snapshot.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/metrics"
)

const (
	SearchTTL  = time.Hour
	LibraryTTL = 5 * time.Minute
)

// Cache wraps a Redis client. A Cache with a nil client is disabled and every
// operation is a no-op miss.
type Cache struct {
	rdb *redis.Client
}

// New connects to redisURL. An empty URL or a failed connection yields a
// disabled cache rather than an error.
func New(redisURL string) *Cache {
	if redisURL == "" {
		log.Info("Redis: no URL configured, caching disabled")
		return &Cache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warnf("Redis: invalid URL, caching disabled: %v", err)
		return &Cache{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("Redis: connection failed, caching disabled: %v", err)
		rdb.Close()
		return &Cache{}
	}

	log.Info("Redis: connected, caching enabled")
	return &Cache{rdb: rdb}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Ping reports whether Redis is reachable. A disabled cache is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// GetJSON decodes the cached value for key into dst. It reports false on a
// miss, when disabled, or when the stored value cannot be decoded.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	if !c.Enabled() {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("Redis: get %s failed: %v", key, err)
		}
		metrics.CacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warnf("Redis: discarding undecodable value for %s: %v", key, err)
		metrics.CacheMisses.Inc()
		return false
	}
	metrics.CacheHits.Inc()
	return true
}

// SetJSON stores v under key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Incr increments the counter at key, starting its TTL on first use. It
// reports false when the cache is disabled or Redis fails.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	if !c.Enabled() {
		return 0, false
	}
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		log.Warnf("Redis: incr %s failed: %v", key, err)
		return 0, false
	}
	return incr.Val(), true
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
