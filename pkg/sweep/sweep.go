package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// TaskName is the job name of the scheduled sweep.
const TaskName = "asset_sweep"

const (
	DefaultSchedule    = "@hourly"
	DefaultGracePeriod = 24 * time.Hour
	DefaultConcurrency = 4
	DefaultBatchSize   = 500
)

// ErrListNotSupported is returned by New for stores that cannot list folders.
var ErrListNotSupported = errors.New("sweep: store cannot list objects")

// Referencer reports which object keys of a category are still referenced by
// a record.
type Referencer interface {
	Referenced(ctx context.Context, c asset.Category, keys []string) (map[string]bool, error)
}

// Store is a store that can enumerate its folders.
type Store interface {
	asset.Store
	asset.Lister
}

// Sweeper deletes stored objects no record references: leftovers of failed
// commits, cancelled requests and failed deletes. Objects younger than the
// grace period are never touched, so uploads still waiting for their commit
// survive.
type Sweeper struct {
	registry    *asset.Registry
	store       Store
	refs        Referencer
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	schedule    string
	grace       time.Duration
	concurrency int
	batchSize   int
	dryRun      bool
}

// Option configures a Sweeper.
type Option func(*Sweeper)

func WithSchedule(expr string) Option {
	return func(s *Sweeper) {
		if expr != "" {
			s.schedule = expr
		}
	}
}

func WithGracePeriod(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithConcurrency caps concurrent deletes per category.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBatchSize sets how many keys are checked per Referenced call.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDryRun reports what would be deleted without deleting.
func WithDryRun(dryRun bool) Option {
	return func(s *Sweeper) {
		s.dryRun = dryRun
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Sweeper. store must implement asset.Lister.
func New(registry *asset.Registry, store asset.Store, refs Referencer, opts ...Option) (*Sweeper, error) {
	lister, ok := store.(Store)
	if !ok {
		return nil, ErrListNotSupported
	}

	s := &Sweeper{
		registry:    registry,
		store:       lister,
		refs:        refs,
		logger:      logger.NewNope(),
		now:         time.Now,
		schedule:    DefaultSchedule,
		grace:       DefaultGracePeriod,
		concurrency: DefaultConcurrency,
		batchSize:   DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Sweeper) Name() string     { return TaskName }
func (s *Sweeper) Schedule() string { return s.schedule }

// Handle runs one sweep as a scheduled job.
func (s *Sweeper) Handle(ctx context.Context) error {
	_, err := s.Run(ctx)
	return err
}

// CategoryReport summarizes the sweep of one category folder.
type CategoryReport struct {
	Err        error
	Category   asset.Category
	Scanned    int
	Recent     int
	Referenced int
	Deleted    int
	Failed     int
}

// Report summarizes one sweep.
type Report struct {
	Categories []CategoryReport
	Elapsed    time.Duration
	DryRun     bool
}

// Deleted returns the number of objects deleted (or, in dry-run mode, that
// would have been deleted) across categories.
func (r Report) Deleted() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Deleted
	}
	return n
}

// Run sweeps every category folder concurrently. Category failures do not
// stop the others; they are joined into the returned error.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	start := s.now()
	policies := s.registry.Policies()
	report := Report{
		Categories: make([]CategoryReport, len(policies)),
		DryRun:     s.dryRun,
	}

	var g errgroup.Group
	for i, p := range policies {
		g.Go(func() error {
			report.Categories[i] = s.sweepCategory(ctx, p, start.Add(-s.grace))
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = s.now().Sub(start)

	var errs []error
	for _, c := range report.Categories {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", c.Category, c.Err))
		}
	}
	err := errors.Join(errs...)
	s.metrics.run(err, report.Elapsed)

	s.logger.InfoContext(ctx, "asset sweep finished",
		slog.Int("deleted", report.Deleted()),
		slog.Bool("dry_run", s.dryRun),
		slog.Duration("elapsed", report.Elapsed),
		slog.Any("error", err),
	)
	return report, err
}

func (s *Sweeper) sweepCategory(ctx context.Context, p asset.Policy, cutoff time.Time) CategoryReport {
	rep := CategoryReport{Category: p.Category}
	batch := make([]string, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.sweepBatch(ctx, p, batch, &rep)
		batch = batch[:0]
		return err
	}

	err := s.store.List(ctx, p, func(obj asset.ListedObject) error {
		rep.Scanned++
		if obj.LastModified.After(cutoff) {
			rep.Recent++
			return nil
		}
		batch = append(batch, obj.Key)
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	rep.Err = err

	s.metrics.objects(p.Category, resultRecent, rep.Recent)
	s.metrics.objects(p.Category, resultReferenced, rep.Referenced)
	s.metrics.objects(p.Category, resultFailed, rep.Failed)
	if s.dryRun {
		s.metrics.objects(p.Category, resultWouldDelete, rep.Deleted)
	} else {
		s.metrics.objects(p.Category, resultDeleted, rep.Deleted)
	}
	return rep
}

func (s *Sweeper) sweepBatch(ctx context.Context, p asset.Policy, keys []string, rep *CategoryReport) error {
	refs, err := s.refs.Referenced(ctx, p.Category, keys)
	if err != nil {
		return err
	}

	var orphans []string
	for _, key := range keys {
		if refs[key] {
			rep.Referenced++
			continue
		}
		orphans = append(orphans, key)
	}

	if s.dryRun {
		for _, key := range orphans {
			s.logger.InfoContext(ctx, "sweep would delete unreferenced object",
				slog.String("category", string(p.Category)),
				slog.String("object_key", key),
			)
		}
		rep.Deleted += len(orphans)
		return nil
	}

	var deleted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, key := range orphans {
		g.Go(func() error {
			if err := s.store.Delete(gctx, p, key); err != nil {
				failed.Add(1)
				s.logger.WarnContext(gctx, "sweep failed to delete object",
					slog.String("category", string(p.Category)),
					slog.String("object_key", key),
					slog.Any("error", err),
				)
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	rep.Deleted += int(deleted.Load())
	rep.Failed += int(failed.Load())
	return ctx.Err()
}
