// Package rescache memoises search responses in the KV store.
package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/db"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a read-through cache of search responses.
type Cache struct {
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), may be nil.
func New(s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, cacheTotal: cacheTotal, logger: logger}
}

// GetOrCompute returns the stored response for key, or runs compute and
// stores its result for ttl. Errors from compute are returned and never
// cached. Cache failures are logged and treated as a miss.
func (c *Cache) GetOrCompute(
	ctx context.Context, key string, ttl time.Duration,
	compute func(ctx context.Context) (result.Response, error),
) (result.Response, error) {
	if resp, ok := c.get(ctx, key); ok {
		c.inc("hit")
		return resp, nil
	}
	c.inc("miss")

	resp, err := compute(ctx)
	if err != nil {
		return result.Response{}, fmt.Errorf("compute %s: %w", key, err)
	}

	c.put(ctx, key, resp, ttl)
	return resp, nil
}

func (c *Cache) get(ctx context.Context, key string) (result.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.inc("error")
			c.logger.Warn("Failed to read cached response", zap.String("key", key), zap.Error(err))
		}
		return result.Response{}, false
	}

	var resp result.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.inc("error")
		c.logger.Warn("Failed to decode cached response", zap.String("key", key), zap.Error(err))
		return result.Response{}, false
	}
	return resp, true
}

func (c *Cache) put(ctx context.Context, key string, resp result.Response, ttl time.Duration) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.inc("error")
		c.logger.Warn("Failed to encode response", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.inc("error")
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
