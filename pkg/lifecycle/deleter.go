package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// InlineDeleter deletes objects synchronously through the store.
type InlineDeleter struct {
	store    asset.Store
	registry *asset.Registry
}

func NewInlineDeleter(store asset.Store, registry *asset.Registry) *InlineDeleter {
	return &InlineDeleter{store: store, registry: registry}
}

// Delete removes obj from its category folder. Missing objects are not an error.
func (d *InlineDeleter) Delete(ctx context.Context, obj asset.StoredObject) error {
	policy, err := d.registry.Policy(obj.Category)
	if err != nil {
		return err
	}
	return d.store.Delete(ctx, policy, obj.Key)
}

const (
	DefaultAsyncConcurrency = 8
	DefaultAsyncTimeout     = time.Minute
)

// AsyncDeleter runs deletes in the background with bounded concurrency.
// Delete returns as soon as the delete is accepted. Completed and failed
// deletes are counted when they finish. Close waits for accepted deletes.
type AsyncDeleter struct {
	next    Deleter
	sem     *semaphore.Weighted
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// AsyncOption configures an AsyncDeleter.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int64
	timeout     time.Duration
}

// WithConcurrency caps the number of deletes running at once.
func WithConcurrency(n int) AsyncOption {
	return func(c *asyncConfig) {
		if n > 0 {
			c.concurrency = int64(n)
		}
	}
}

// WithAsyncTimeout bounds each background delete.
func WithAsyncTimeout(d time.Duration) AsyncOption {
	return func(c *asyncConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithAsyncLogger(l *slog.Logger) AsyncOption {
	return func(c *asyncConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithAsyncMetrics(m *Metrics) AsyncOption {
	return func(c *asyncConfig) {
		c.metrics = m
	}
}

// NewAsyncDeleter wraps next, usually an InlineDeleter.
func NewAsyncDeleter(next Deleter, opts ...AsyncOption) *AsyncDeleter {
	cfg := &asyncConfig{
		logger:      logger.NewNope(),
		concurrency: DefaultAsyncConcurrency,
		timeout:     DefaultAsyncTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &AsyncDeleter{
		next:    next,
		sem:     semaphore.NewWeighted(cfg.concurrency),
		logger:  cfg.logger,
		metrics: cfg.metrics,
		timeout: cfg.timeout,
	}
}

// Delete schedules obj for deletion. The caller's context only contributes
// its values; cancellation does not stop the delete.
func (d *AsyncDeleter) Delete(ctx context.Context, obj asset.StoredObject) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx), obj)
	return nil
}

func (d *AsyncDeleter) run(ctx context.Context, obj asset.StoredObject) {
	defer d.wg.Done()

	// A detached context never cancels, so Acquire only returns once a slot is free.
	_ = d.sem.Acquire(ctx, 1)
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.next.Delete(ctx, obj); err != nil {
		d.metrics.delete(obj.Category, resultAsyncFailed)
		d.logger.WarnContext(ctx, "background delete failed",
			slog.String("category", string(obj.Category)),
			slog.String("object_key", obj.Key),
			slog.Any("error", err),
		)
		return
	}
	d.metrics.delete(obj.Category, resultDeleted)
}

// Deferred reports true: Delete returns before the object is removed.
func (d *AsyncDeleter) Deferred() bool { return true }

// Close stops accepting deletes and waits for running ones, or for ctx.
func (d *AsyncDeleter) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
