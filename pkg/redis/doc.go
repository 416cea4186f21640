// Package redis opens go-redis clients from environment configuration.
//
//	REDIS_URL             - redis:// or rediss:// URL; empty disables Redis
//	REDIS_POOL_SIZE       - maximum connections (default: 10)
//	REDIS_MIN_IDLE_CONNS  - idle connections kept open (default: 2)
//	REDIS_READ_TIMEOUT    - read timeout (default: 3s)
//	REDIS_WRITE_TIMEOUT   - write timeout (default: 3s)
//	REDIS_DIAL_TIMEOUT    - dial timeout (default: 5s)
//	REDIS_RETRY_ATTEMPTS  - startup retries (default: 3)
//	REDIS_RETRY_INTERVAL  - base startup backoff (default: 1s)
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	checks["redis"] = redis.Healthcheck(client)
package redis
