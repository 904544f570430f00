// Package cache implements the cache-aside layer used by the reservation
// queries.  Keys are namespaced under a configurable prefix and grouped by
// scope so writes can invalidate whole families with a wildcard pattern.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Stats is a snapshot of hit and miss counters.
type Stats struct {
	Hits   int64   `json:"hits"`
	Misses int64   `json:"misses"`
	Ratio  float64 `json:"hit_ratio"`
}

// Cache is the small surface the service layer depends on.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Invalidate deletes every key matching one of the patterns.  A
	// trailing '*' in a pattern matches any suffix.
	Invalidate(ctx context.Context, patterns ...string) error
	Clear(ctx context.Context) error
	Stats() Stats
	ResetStats()
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) snapshot() Stats {
	h, m := c.hits.Load(), c.misses.Load()
	s := Stats{Hits: h, Misses: m}
	if h+m > 0 {
		s.Ratio = float64(h) / float64(h+m)
	}
	return s
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// RedisCache stores entries in Redis under prefix + ":" + key.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	stats  counters
}

// NewRedis wraps a connected client.  An empty prefix defaults to "tables".
func NewRedis(rdb *redis.Client, prefix string) *RedisCache {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "tables"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) key(k string) string { return c.prefix + ":" + k }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		return nil, ErrMiss
	}
	if err != nil {
		c.stats.misses.Add(1)
		return nil, err
	}
	c.stats.hits.Add(1)
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), val, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, patterns ...string) error {
	for _, p := range patterns {
		if !strings.Contains(p, "*") {
			if err := c.rdb.Del(ctx, c.key(p)).Err(); err != nil {
				return err
			}
			continue
		}
		if err := c.scanDelete(ctx, c.key(p)); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.scanDelete(ctx, c.prefix+":*")
}

// scanDelete walks the keyspace with SCAN so large caches never block Redis
// the way KEYS would.
func (c *RedisCache) scanDelete(ctx context.Context, match string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *RedisCache) Stats() Stats { return c.stats.snapshot() }
func (c *RedisCache) ResetStats()  { c.stats.reset() }

// NopCache never stores anything; every Get is a miss.  It is used when
// Redis is disabled or unreachable.
type NopCache struct {
	stats counters
}

func (n *NopCache) Get(context.Context, string) ([]byte, error) {
	n.stats.misses.Add(1)
	return nil, ErrMiss
}
func (n *NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (n *NopCache) Invalidate(context.Context, ...string) error              { return nil }
func (n *NopCache) Clear(context.Context) error                               { return nil }
func (n *NopCache) Stats() Stats                                              { return n.stats.snapshot() }
func (n *NopCache) ResetStats()                                               { n.stats.reset() }
