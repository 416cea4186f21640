package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value cache with TTL support.
//
// TTL semantics for Set: positive expires after the duration, zero uses the
// cache default, negative never expires.
type Cache[V any] interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Marshaler converts values for byte-oriented backends such as Redis.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// Loader computes missing values at most once per key at a time.
type Loader[V any] struct {
	cache Cache[V]
	group singleflight.Group
}

// NewLoader wraps c.
func NewLoader[V any](c Cache[V]) *Loader[V] {
	return &Loader[V]{cache: c}
}

type loaded[V any] struct {
	val V
	ttl time.Duration
}

// GetOrSet returns the cached value for key, or calls fn on a miss and caches
// its result. Concurrent callers with the same key share one fn call. replayed
// is true when the value was not produced by this caller's fn.
//
// Errors from fn are returned and not cached. Cache read and write failures
// are treated as misses.
func (l *Loader[V]) GetOrSet(ctx context.Context, key string, fn func(ctx context.Context) (V, time.Duration, error)) (v V, replayed bool, err error) {
	if v, err := l.cache.Get(ctx, key); err == nil {
		return v, true, nil
	}

	executed := false
	res, err, _ := l.group.Do(key, func() (any, error) {
		executed = true
		val, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, val, ttl)
		return loaded[V]{val: val, ttl: ttl}, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(loaded[V]).val, !executed, nil
}
