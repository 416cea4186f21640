package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Healthcheck pings Redis. The result fits health.CheckFunc.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("%w: no client", ErrHealthcheckFailed)
		}
		if pong, err := client.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, err)
		} else if pong != "PONG" {
			return fmt.Errorf("%w: unexpected ping reply %q", ErrHealthcheckFailed, pong)
		}
		return nil
	}
}
