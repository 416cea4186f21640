// Package sweep reconciles the store with the records that reference it.
//
// The sweep lists every category folder, skips objects younger than the grace
// period, asks a Referencer which of the remaining keys are still in use, and
// deletes the rest. It catches objects the request path could not clean up:
// uploads whose commit failed, uploads cancelled after the Put, and superseded
// objects whose delete failed.
//
// The Referencer must know every object handed to a caller, whether bound to
// a slot or recorded as a stateless upload. Anything it does not know is
// deleted once past the grace period.
//
// A Sweeper is a scheduled job task:
//
//	sweeper, err := sweep.New(registry, store, slots,
//		sweep.WithGracePeriod(24*time.Hour),
//		sweep.WithDryRun(cfg.Sweep.DryRun),
//	)
//	manager, err := job.NewManager(pool, job.WithScheduledTask(sweeper))
package sweep
