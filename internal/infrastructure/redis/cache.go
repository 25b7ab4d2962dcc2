package redis

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

const (
	scanBatch = 200
	// per-key bookkeeping Redis spends beyond key and value bytes
	keyOverhead = 64
)

// RedisCache implements ports.CacheStore on Redis so several gateway
// replicas share one cache. Redis errors are logged and read as a miss.
type RedisCache struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
	logger *logrus.Logger
}

// NewRedisCache creates a new Redis-backed cache.
func NewRedisCache(r redis.Cmdable, prefix string, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{r: r, prefix: prefix, logger: logger}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) strip(ns string) string {
	if c.prefix == "" {
		return ns
	}
	return strings.TrimPrefix(ns, c.prefix+":")
}

func (c *RedisCache) pattern() string {
	if c.prefix == "" {
		return "*"
	}
	return c.prefix + ":*"
}

// Get implements CacheStore.Get. Expiry is enforced by Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis cache get failed")
		return nil, false
	}
	return val, true
}

// Set implements CacheStore.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.r.Set(ctx, c.namespaced(key), value, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis cache set failed")
	}
}

// Invalidate implements CacheStore.Invalidate. With no keys every entry
// under the prefix is removed.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) {
	var targets []string
	if len(keys) == 0 {
		all, err := c.scan(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("redis cache scan failed")
			return
		}
		targets = all
	} else {
		targets = make([]string, len(keys))
		for i, k := range keys {
			targets[i] = c.namespaced(k)
		}
	}
	for start := 0; start < len(targets); start += scanBatch {
		end := min(start+scanBatch, len(targets))
		if err := c.r.Del(ctx, targets[start:end]...).Err(); err != nil {
			c.logger.WithError(err).Warn("redis cache delete failed")
			return
		}
	}
}

// Stats implements CacheStore.Stats.
func (c *RedisCache) Stats(ctx context.Context) ports.CacheStats {
	stats := ports.CacheStats{Keys: []string{}}
	keys, err := c.scan(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("redis cache scan failed")
		return stats
	}
	if len(keys) == 0 {
		return stats
	}

	pipe := c.r.Pipeline()
	lens := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		lens[i] = pipe.StrLen(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		c.logger.WithError(err).Warn("redis cache strlen failed")
	}
	for i, k := range keys {
		n, err := lens[i].Result()
		if err != nil {
			continue
		}
		// STRLEN of an expired key is 0
		if n == 0 {
			continue
		}
		stripped := c.strip(k)
		stats.Keys = append(stats.Keys, stripped)
		stats.ApproxMemoryBytes += int64(len(stripped)) + n + keyOverhead
	}
	stats.Size = len(stats.Keys)
	sort.Strings(stats.Keys)
	return stats
}

func (c *RedisCache) scan(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := c.r.Scan(ctx, cursor, c.pattern(), scanBatch).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// Ping reports whether Redis answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.r.Ping(ctx).Err()
}

var _ ports.CacheStore = (*RedisCache)(nil)
