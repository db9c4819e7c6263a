package cache

import (
	"context"
	"errors"
	"time"

	"judge-chat-service/internal/apperr"
	"judge-chat-service/internal/observability"
)

// primaryAttempts bounds retries against the primary tier. Retries are
// immediate; the primary is on the request path and waiting would only move
// latency around.
const primaryAttempts = 3

// Tiered composes a fast in-process tier with the shared primary tier.
// Reads prefer the fast tier and refill it on a primary hit; writes and
// deletes go through both tiers. Tier depth is a wiring choice: any Backend
// works as either tier, so a single-tier setup is the same code with a
// different constructor call.
type Tiered struct {
	fast    Backend
	primary Backend
	fastTTL time.Duration
}

// NewTiered combines the two tiers. fastTTL bounds how long a primary hit
// is served from process memory before being revalidated.
func NewTiered(fast, primary Backend, fastTTL time.Duration) *Tiered {
	return &Tiered{fast: fast, primary: primary, fastTTL: fastTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := t.fast.Get(ctx, key)
	if err == nil {
		observability.IncCacheHit("fast")
		return value, nil
	}

	var lastErr error
	for attempt := 0; attempt < primaryAttempts; attempt++ {
		value, err = t.primary.Get(ctx, key)
		if err == nil {
			observability.IncCacheHit("primary")
			_ = t.fast.Set(ctx, key, value, t.fastTTL)
			return value, nil
		}
		if errors.Is(err, ErrMiss) {
			observability.IncCacheMiss("primary")
			return nil, ErrMiss
		}
		lastErr = err
	}

	observability.IncCacheError("primary")
	return nil, apperr.CacheUnavailable("primary cache unavailable", lastErr)
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fastTTL := ttl
	if t.fastTTL < fastTTL || fastTTL <= 0 {
		fastTTL = t.fastTTL
	}
	if err := t.fast.Set(ctx, key, value, fastTTL); err != nil {
		return err
	}
	return t.primary.Set(ctx, key, value, ttl)
}

func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fastErr := t.fast.Delete(ctx, keys...)
	if err := t.primary.Delete(ctx, keys...); err != nil {
		return err
	}
	return fastErr
}

var _ Backend = (*Tiered)(nil)
