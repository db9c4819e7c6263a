package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// LoaderFunc recomputes a single value from ground truth.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// BatchLoaderFunc recomputes several values in one round trip. The returned
// map must contain an entry for every requested key.
type BatchLoaderFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Accessor binds a key prefix, a TTL and loaders to a Backend. Values are
// JSON-encoded. Each accessor kind owns a distinct short prefix so the
// shared key space cannot collide.
type Accessor[K comparable, V any] struct {
	backend  Backend
	prefix   string
	ttl      time.Duration
	load     LoaderFunc[K, V]
	loadMany BatchLoaderFunc[K, V]
}

// NewAccessor builds an accessor. loadMany may be nil, in which case GetMany
// falls back to per-key loads.
func NewAccessor[K comparable, V any](backend Backend, prefix string, ttl time.Duration, load LoaderFunc[K, V], loadMany BatchLoaderFunc[K, V]) *Accessor[K, V] {
	return &Accessor[K, V]{
		backend:  backend,
		prefix:   prefix,
		ttl:      ttl,
		load:     load,
		loadMany: loadMany,
	}
}

func (a *Accessor[K, V]) key(k K) string {
	return fmt.Sprintf("%s:%v", a.prefix, k)
}

// Get returns the cached value for k, recomputing and filling the cache on a
// miss. Backend failures are logged and answered from the loader, so a cache
// outage costs latency, not correctness.
func (a *Accessor[K, V]) Get(ctx context.Context, k K) (V, error) {
	if value, ok := a.lookup(ctx, k); ok {
		return value, nil
	}

	value, err := a.load(ctx, k)
	if err != nil {
		return value, err
	}
	a.store(ctx, k, value)
	return value, nil
}

// GetMany returns values for all keys. Every cache miss is resolved by a
// single batch-loader call, and each loaded value is cached individually so
// later single-key gets hit.
func (a *Accessor[K, V]) GetMany(ctx context.Context, keys []K) (map[K]V, error) {
	out := make(map[K]V, len(keys))
	var misses []K
	for _, k := range keys {
		if value, ok := a.lookup(ctx, k); ok {
			out[k] = value
		} else {
			misses = append(misses, k)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	if a.loadMany == nil {
		for _, k := range misses {
			value, err := a.load(ctx, k)
			if err != nil {
				return nil, err
			}
			out[k] = value
			a.store(ctx, k, value)
		}
		return out, nil
	}

	loaded, err := a.loadMany(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, k := range misses {
		value := loaded[k]
		out[k] = value
		a.store(ctx, k, value)
	}
	return out, nil
}

// Dirty removes the cached entry for k. Missing entries are not an error.
func (a *Accessor[K, V]) Dirty(ctx context.Context, k K) {
	if err := a.backend.Delete(ctx, a.key(k)); err != nil {
		log.Warn().Err(err).Str("key", a.key(k)).Msg("cache dirty failed")
	}
}

// DirtyMany removes the cached entries for all keys in one backend call.
func (a *Accessor[K, V]) DirtyMany(ctx context.Context, keys []K) {
	if len(keys) == 0 {
		return
	}
	encoded := make([]string, len(keys))
	for i, k := range keys {
		encoded[i] = a.key(k)
	}
	if err := a.backend.Delete(ctx, encoded...); err != nil {
		log.Warn().Err(err).Str("prefix", a.prefix).Int("keys", len(keys)).Msg("cache dirty failed")
	}
}

func (a *Accessor[K, V]) lookup(ctx context.Context, k K) (V, bool) {
	var value V
	raw, err := a.backend.Get(ctx, a.key(k))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warn().Err(err).Str("key", a.key(k)).Msg("cache get failed, recomputing from store")
		}
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		// A payload we cannot decode is treated as a miss and overwritten.
		log.Warn().Err(err).Str("key", a.key(k)).Msg("cache payload undecodable")
		return value, false
	}
	return value, true
}

func (a *Accessor[K, V]) store(ctx context.Context, k K, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", a.key(k)).Msg("cache encode failed")
		return
	}
	if err := a.backend.Set(ctx, a.key(k), raw, a.ttl); err != nil {
		log.Warn().Err(err).Str("key", a.key(k)).Msg("cache set failed")
	}
}
