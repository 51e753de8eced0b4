package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/citeseek/citeseek/pkg/metrics"
	"github.com/citeseek/citeseek/pkg/redis"
)

// QueryCache memoises serialized search responses in Redis, collapsing
// concurrent identical queries through singleflight so a popular query only
// hits the engine once per TTL window.
type QueryCache struct {
	redis   *redis.Client
	group   singleflight.Group
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewQueryCache(client *redis.Client, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) *QueryCache {
	return &QueryCache{
		redis:   client,
		ttl:     ttl,
		metrics: m,
		logger:  log.With("component", "query_cache"),
	}
}

// Key builds a deterministic cache key from the full parameter set, hashed so
// arbitrary query text stays within Redis key-length norms.
func (c *QueryCache) Key(query string, k int, wCos, wRank float64, normalize bool) string {
	raw := fmt.Sprintf("%s|%d|%g|%g|%t", query, k, wCos, wRank, normalize)
	sum := sha256.Sum256([]byte(raw))
	return "search:" + hex.EncodeToString(sum[:16])
}

// GetOrCompute returns the cached response for key, or runs compute and
// stores its result. Redis failures degrade to compute-only.
func (c *QueryCache) GetOrCompute(ctx context.Context, key string, compute func() (any, error)) ([]byte, bool, error) {
	if c.redis != nil {
		cached, err := c.redis.Get(ctx, key)
		if err == nil {
			c.hits.Add(1)
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.Inc()
			}
			return []byte(cached), true, nil
		}
		if !redis.IsNilError(err) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal response: %w", err)
		}
		if c.redis != nil {
			if err := c.redis.Set(ctx, key, payload, c.ttl); err != nil {
				c.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Invalidate drops all cached search responses. Called after artifacts are
// reloaded so stale rankings never outlive an index swap.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	if c.redis == nil {
		return 0, nil
	}
	return c.redis.FlushByPattern(ctx, "search:*")
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
