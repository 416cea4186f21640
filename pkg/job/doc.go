// Package job runs background tasks on River, a Postgres-backed queue.
//
// Every task is stored under one River job kind with the task name and a JSON
// payload, and dispatched through a table of typed handlers. Tasks need no
// interface import; any type with Name and Handle methods qualifies:
//
//	type DeleteTask struct{ ... }
//
//	func (t *DeleteTask) Name() string { return "asset_delete" }
//	func (t *DeleteTask) Handle(ctx context.Context, p DeletePayload) error { ... }
//
// Periodic tasks add a Schedule method returning a cron expression:
//
//	func (s *Sweeper) Name() string     { return "asset_sweep" }
//	func (s *Sweeper) Schedule() string { return "@hourly" }
//	func (s *Sweeper) Handle(ctx context.Context) error { ... }
//
// Wiring:
//
//	manager, err := job.NewManager(pool,
//	    job.WithTask(lifecycle.NewDeleteTask(store, registry, log)),
//	    job.WithScheduledTask(sweeper),
//	    job.WithLogger(log),
//	    job.WithMetrics(m),
//	    job.WithTaskTimeout(10*time.Minute),
//	)
//	if err := manager.Start(ctx); err != nil { ... }
//	defer manager.Stop(shutdownCtx)
//
//	err = manager.Enqueue(ctx, "asset_delete", payload,
//	    job.MaxAttempts(10),
//	    job.UniqueFor(time.Hour),
//	    job.UniqueKey("icon/abc123"),
//	)
//
// Payloads that do not decode into the task's payload type are cancelled
// instead of retried. Handlers see the task name in their context under the
// "task" logger value.
//
// Processes that only insert jobs use NewEnqueuer, which creates a River
// client without workers. River's migrations must be applied to the database
// before either is used.
package job
