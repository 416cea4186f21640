package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Enqueuer inserts jobs without working them. API-only processes use it to
// hand deletes to a separate worker process; Manager embeds one.
type Enqueuer struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

// NewEnqueuer creates an insert-only River client. Only WithLogger applies;
// task and worker options are ignored.
func NewEnqueuer(pool *pgxpool.Pool, opts ...Option) (*Enqueuer, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{Logger: cfg.logger})
	if err != nil {
		return nil, fmt.Errorf("job: create enqueuer client: %w", err)
	}
	return &Enqueuer{pool: pool, client: client, logger: cfg.logger}, nil
}

// Enqueue inserts a job for the named task. Whether the task exists is only
// known to the worker process.
func (e *Enqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	params, err := newInsert(name, payload, opts)
	if err != nil {
		return err
	}

	res, err := e.client.Insert(ctx, params.Args, params.InsertOpts)
	switch {
	case err != nil:
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	case res != nil && res.UniqueSkippedAsDuplicate:
		e.logger.DebugContext(ctx, "duplicate job skipped", slog.String("task", name))
	}
	return nil
}
