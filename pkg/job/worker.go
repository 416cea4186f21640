package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// worker runs every task kind through the task table.
type worker struct {
	river.WorkerDefaults[taskArgs]
	tasks   tasks
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration
}

// Timeout overrides River's default job timeout when one was configured.
func (w *worker) Timeout(*river.Job[taskArgs]) time.Duration {
	return w.timeout
}

func (w *worker) Work(ctx context.Context, j *river.Job[taskArgs]) error {
	name := j.Args.TaskName
	run, ok := w.tasks[name]
	if !ok {
		w.metrics.observe(name, resultFailed, 0)
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	ctx = logger.WithValue(ctx, "task", name)
	log := w.logger.With(
		slog.Int64("job_id", j.ID),
		slog.Int("attempt", j.Attempt),
	)
	log.DebugContext(ctx, "executing task")

	start := time.Now()
	err := run(ctx, j.Args.Payload)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		w.metrics.observe(name, resultSuccess, elapsed)
		log.DebugContext(ctx, "task completed", slog.Duration("duration", elapsed))
	case cancelled(err):
		w.metrics.observe(name, resultCancelled, elapsed)
		log.WarnContext(ctx, "task cancelled", slog.Any("error", err))
	case j.Attempt >= j.MaxAttempts:
		w.metrics.observe(name, resultFailed, elapsed)
		log.ErrorContext(ctx, "task failed, giving up", slog.Any("error", err))
	default:
		w.metrics.observe(name, resultFailed, elapsed)
		log.WarnContext(ctx, "task failed, will retry", slog.Any("error", err))
	}
	return err
}

func cancelled(err error) bool {
	var cancel *rivertype.JobCancelError
	return errors.As(err, &cancel)
}
