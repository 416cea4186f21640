package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

type config struct {
	tasks       tasks
	queues      map[string]int
	logger      *slog.Logger
	metrics     *Metrics
	schedules   []scheduleConfig
	maxWorkers  int
	taskTimeout time.Duration
	runOnStart  bool
}

func newConfig() *config {
	return &config{
		tasks:      tasks{},
		queues:     make(map[string]int),
		logger:     logger.NewNope(),
		maxWorkers: defaultMaxWorkers,
	}
}

type scheduleConfig struct {
	handler  func(context.Context) error
	name     string
	schedule string
}

// Option configures the job manager.
type Option func(*config)

// WithTask registers a task. The payload type P is inferred from the Handle
// method, so any type with these two methods qualifies:
//
//	func (t *DeleteTask) Name() string { return "asset_delete" }
//	func (t *DeleteTask) Handle(ctx context.Context, p DeletePayload) error { ... }
//
// Registering a second task under the same name replaces the first.
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.tasks[task.Name()] = typedHandler(task.Handle)
	}
}

// WithScheduledTask registers a periodic task.
// Schedule() returns a 5-field cron expression or a descriptor like "@hourly".
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithRunOnStart makes every scheduled task also run once when the manager
// starts.
func WithRunOnStart() Option {
	return func(c *config) {
		c.runOnStart = true
	}
}

// WithQueue configures a named queue with the given number of workers.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithLogger sets the logger for job processing.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records task runs.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithMaxWorkers sets the worker count of the default queue.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithTaskTimeout bounds one task attempt. Zero keeps River's default of one
// minute; a negative value disables the timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *config) {
		c.taskTimeout = d
	}
}
