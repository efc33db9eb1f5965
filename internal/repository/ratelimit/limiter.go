// Package ratelimit implements fixed-window request counting on the KV store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/khoj/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "ratelimit:"

// store is the consumer interface for rate limiting (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	store store
}

// New creates a limiter.
func New(s store) *Limiter {
	return &Limiter{store: s}
}

// Allow increments the counter for key and reports whether it is still within limit.
// The window starts with the first request: the expiry is set only when the
// counter is created. If the process dies between INCR and EXPIRE the key never
// expires; this matches the plain INCR/EXPIRE pattern and is accepted.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := keyPrefix + key
	n, err := l.store.IncrBy(ctx, k, 1)
	if err != nil {
		return false, fmt.Errorf("ratelimit INCR %s: %w", k, err)
	}

	if n == 1 {
		if err := l.store.Expire(ctx, k, window); err != nil {
			return false, fmt.Errorf("ratelimit EXPIRE %s: %w", k, err)
		}
	}

	return n <= int64(limit), nil
}
