package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache shared by every replica. Values are serialized with the
// configured Marshaler (default: JSON).
type Redis[V any] struct {
	client     redis.UniversalClient
	marshaler  Marshaler[V]
	prefix     string
	defaultTTL time.Duration
}

// NewRedis creates a Redis-backed cache. Keys are stored as "{prefix}:{key}"
// when prefix is not empty. A nil Marshaler selects JSON.
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], prefix string, defaultTTL time.Duration) *Redis[V] {
	if m == nil {
		m = jsonMarshaler[V]{}
	}
	if defaultTTL == 0 {
		defaultTTL = time.Hour
	}
	return &Redis[V]{
		client:     client,
		marshaler:  m,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return r.marshaler.Unmarshal(data)
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := r.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	// Redis reads 0 as "no expiration".
	return r.client.Set(ctx, r.key(key), data, max(ttl, 0)).Err()
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis[V]) Close() error {
	return nil
}

func (r *Redis[V]) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

var _ Cache[any] = (*Redis[any])(nil)
