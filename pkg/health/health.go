package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

const (
	defaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports a dependency as unhealthy by returning an error.
// db.Healthcheck, redis.Healthcheck and job.Healthcheck return one.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name ("postgres", "storage") to its check.
type Checks map[string]CheckFunc

// Response is the readiness report. Status is unhealthy when any check failed.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check is the result of one CheckFunc.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures Run and ReadinessHandler.
type Option func(*config)

// WithTimeout bounds the whole run. Checks share the deadline. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger failed checks are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes checks concurrently under one deadline and aggregates them.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	names := slices.Sorted(maps.Keys(checks))
	results := make([]Check, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Go(func() {
			start := time.Now()
			err := runCheck(ctx, checks[name])
			results[i] = Check{Status: StatusHealthy, Duration: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				results[i].Status = StatusUnhealthy
				results[i].Error = err.Error()
			}
		})
	}
	wg.Wait()

	resp := &Response{Status: StatusHealthy, Checks: make(map[string]Check, len(names))}
	for i, name := range names {
		resp.Checks[name] = results[i]
		if results[i].Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
			cfg.logger.WarnContext(ctx, "health check failed",
				slog.String("check", name),
				slog.String("error", results[i].Error),
			)
		}
	}
	return resp
}

// runCheck calls check, turning a panic into ErrCheckFailed and a missed
// deadline into ErrCheckTimeout.
func runCheck(ctx context.Context, check CheckFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCheckFailed, r)
		}
	}()

	err = check(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCheckTimeout, err)
	}
	return err
}
