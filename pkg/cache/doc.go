// Package cache provides a TTL cache with in-memory and Redis backends.
//
// The upload handler uses it to replay results of requests carrying an
// Idempotency-Key. Loader.GetOrSet collapses concurrent requests with the
// same key into one computation:
//
//	results := cache.NewLoader[Response](cache.NewMemory[Response](
//		cache.WithDefaultTTL(24*time.Hour),
//		cache.WithMaxEntries(10000),
//	))
//
//	resp, replayed, err := results.GetOrSet(ctx, key, func(ctx context.Context) (Response, time.Duration, error) {
//		return handle(ctx)
//	})
//
// Replicated deployments use NewRedis with a client from pkg/redis so every
// instance sees the same entries.
package cache
