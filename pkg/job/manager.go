package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const defaultMaxWorkers = 20

// Manager enqueues and works tasks. Jobs enqueued before Start run once the
// manager starts.
type Manager struct {
	*Enqueuer
	tasks  tasks
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager builds the River client with one worker that dispatches every
// registered task. Scheduled tasks become River periodic jobs.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	rc, err := cfg.riverConfig()
	if err != nil {
		return nil, err
	}
	client, err := river.NewClient(riverpgxv5.New(pool), rc)
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}

	return &Manager{
		Enqueuer: &Enqueuer{pool: pool, client: client, logger: cfg.logger},
		tasks:    cfg.tasks,
		logger:   cfg.logger,
	}, nil
}

// riverConfig registers scheduled tasks alongside plain ones, so it must run
// before the task table is handed to the worker.
func (c *config) riverConfig() (*river.Config, error) {
	periodic := make([]*river.PeriodicJob, 0, len(c.schedules))
	for _, s := range c.schedules {
		pj, err := periodicJob(s, c.runOnStart)
		if err != nil {
			return nil, fmt.Errorf("job: invalid cron schedule %q for %s: %w", s.schedule, s.name, err)
		}
		periodic = append(periodic, pj)
		c.tasks[s.name] = periodicHandler(s.handler)
	}

	queues := make(map[string]river.QueueConfig, len(c.queues)+1)
	queues[river.QueueDefault] = river.QueueConfig{MaxWorkers: c.maxWorkers}
	for name, n := range c.queues {
		queues[name] = river.QueueConfig{MaxWorkers: n}
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &worker{
		tasks:   c.tasks,
		logger:  c.logger,
		metrics: c.metrics,
		timeout: c.taskTimeout,
	})

	return &river.Config{
		Logger:       c.logger,
		PeriodicJobs: periodic,
		Queues:       queues,
		Workers:      workers,
	}, nil
}

// Start begins working jobs. River keeps using ctx for background work, so
// it must outlive the manager; pass context.WithoutCancel of a request-scoped
// context.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("job: start: %w", err)
	}
	m.started = true
	m.logger.Info("job manager started", slog.Any("tasks", m.tasks.names()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	err := m.client.Stop(ctx)
	m.started = false
	if err != nil {
		return fmt.Errorf("job: stop: %w", err)
	}
	m.logger.Info("job manager stopped")
	return nil
}

// Enqueue inserts a job for a task registered on this manager.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, ok := m.tasks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return m.Enqueuer.Enqueue(ctx, name, payload, opts...)
}

// Shutdown adapts Stop to a shutdown hook. A manager that never started
// stops without error.
func (m *Manager) Shutdown() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := m.Stop(ctx); !errors.Is(err, ErrNotStarted) {
			return err
		}
		return nil
	}
}
