package job

import (
	"context"
	"errors"
	"fmt"
)

// ErrHealthcheckFailed is returned when the job manager health check fails.
var ErrHealthcheckFailed = errors.New("job: healthcheck failed")

var (
	errManagerNil        = errors.New("manager is nil")
	errManagerNotStarted = errors.New("manager not started")
)

// Healthcheck reports the manager unhealthy until Start succeeded, and
// whenever its pool cannot reach Postgres. The result fits health.CheckFunc.
func Healthcheck(m *Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if m == nil {
			return errors.Join(ErrHealthcheckFailed, errManagerNil)
		}
		if !m.running() {
			return errors.Join(ErrHealthcheckFailed, errManagerNotStarted)
		}
		if err := m.pool.Ping(ctx); err != nil {
			return fmt.Errorf("%w: ping: %w", ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func (m *Manager) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
