// Package cache provides the two-tier derived-view cache: an in-process
// fast tier in front of a shared Redis primary, plus typed accessors that
// bind a key prefix to a loader and an optional batch loader.
//
// The cache is strictly derivative. Every accessor stays correct when the
// backend always misses; a cache outage degrades latency, never results.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Backend when the key is not present.
var ErrMiss = errors.New("cache: miss")

// Backend is a single cache tier.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
