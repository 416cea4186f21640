// Package app wires the assetd components from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/assetflow/internal/config"
	"github.com/dmitrymomot/assetflow/internal/server"
	"github.com/dmitrymomot/assetflow/middlewares"
	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/cache"
	"github.com/dmitrymomot/assetflow/pkg/db"
	"github.com/dmitrymomot/assetflow/pkg/health"
	"github.com/dmitrymomot/assetflow/pkg/ingest"
	"github.com/dmitrymomot/assetflow/pkg/job"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
	"github.com/dmitrymomot/assetflow/pkg/logger"
	"github.com/dmitrymomot/assetflow/pkg/redis"
	"github.com/dmitrymomot/assetflow/pkg/slotstore"
	"github.com/dmitrymomot/assetflow/pkg/storage"
	"github.com/dmitrymomot/assetflow/pkg/sweep"
	"github.com/dmitrymomot/assetflow/pkg/upload"
)

// Health endpoints.
const (
	LivenessPath  = "/health/live"
	ReadinessPath = "/health/ready"
)

// idempotencyPrefix namespaces idempotency keys in a shared Redis.
const idempotencyPrefix = "assetflow:idempotency"

// App is a fully wired assetd instance. Handler serves the HTTP API; the
// hooks start and stop the background components around it.
type App struct {
	Handler http.Handler

	log      *slog.Logger
	registry *prometheus.Registry
	store    *storage.Retrying
	checks   health.Checks
	start    []server.Hook
	shutdown []server.Hook
}

// Option configures New.
type Option func(*App)

// WithMetricsRegistry exports metrics through reg instead of a fresh
// registry with the Go and process collectors.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		if reg != nil {
			a.registry = reg
		}
	}
}

// New connects every configured backend and builds the router. On failure
// whatever was opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.NewNope()
	}
	a := &App{log: log, checks: health.Checks{}}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if err := a.build(ctx, cfg); err != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return nil, errors.Join(err, a.Close(closeCtx))
	}
	return a, nil
}

// ServerOptions returns the hooks and logger for server.New.
func (a *App) ServerOptions() []server.Option {
	opts := []server.Option{server.WithLogger(a.log)}
	for _, h := range a.start {
		opts = append(opts, server.WithStartHook(h))
	}
	for _, h := range a.shutdown {
		opts = append(opts, server.WithShutdownHook(h))
	}
	return opts
}

// Store returns the configured object store.
func (a *App) Store() *storage.Retrying {
	return a.store
}

// Close runs the shutdown hooks. Use it when the server never started.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, h := range a.shutdown {
		errs = append(errs, h(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) onStart(h server.Hook)    { a.start = append(a.start, h) }
func (a *App) onShutdown(h server.Hook) { a.shutdown = append(a.shutdown, h) }

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage, storage.WithRetryLogger(a.log))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store
	a.checks["storage"] = store.Ping

	ingestMetrics, err := ingest.NewMetrics(a.registry)
	if err != nil {
		return err
	}
	pipeline := ingest.New(registry, store,
		ingest.WithLogger(a.log),
		ingest.WithMetrics(ingestMetrics),
	)

	var uploadOpts []upload.Option
	if cfg.DB.Enabled() {
		slots, enqueuer, err := a.openDatabase(ctx, cfg, registry, store)
		if err != nil {
			return err
		}
		manager, err := a.lifecycleManager(cfg, pipeline, registry, store, enqueuer)
		if err != nil {
			return err
		}
		// Stateless uploads are recorded in the same database the sweep
		// consults, so the sweep never removes an object a caller holds.
		uploadOpts = append(uploadOpts,
			upload.WithSlots(manager, slots),
			upload.WithLedger(manager, slots),
		)
	}

	idem, err := a.idempotencyCache(ctx, cfg)
	if err != nil {
		return err
	}
	if idem != nil {
		uploadOpts = append(uploadOpts, upload.WithIdempotency(idem, cfg.Upload.IdempotencyTTL))
	}
	uploadOpts = append(uploadOpts,
		upload.WithLogger(a.log),
		upload.WithMultipartOverhead(cfg.Upload.MultipartOverhead),
	)

	a.Handler = a.router(cfg, upload.NewHandler(pipeline, uploadOpts...))
	return nil
}

// openDatabase connects Postgres, applies the slot and river migrations and
// sets up the job queue. The returned enqueuer is the job manager, or an
// insert-only client when this instance does not process jobs.
func (a *App) openDatabase(ctx context.Context, cfg *config.Config, registry *asset.Registry, store *storage.Retrying) (*slotstore.Store, lifecycle.Enqueuer, error) {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	a.onShutdown(db.Shutdown(pool))
	a.checks["postgres"] = db.Healthcheck(pool)

	if err := db.Migrate(ctx, pool, slotstore.Migrations(), cfg.DB.MigrationsTable, a.log); err != nil {
		return nil, nil, err
	}
	if err := job.Migrate(ctx, pool, a.log); err != nil {
		return nil, nil, err
	}

	slots := slotstore.New(pool)
	if !cfg.Jobs.Process {
		enqueuer, err := job.NewEnqueuer(pool, job.WithLogger(a.log))
		if err != nil {
			return nil, nil, err
		}
		return slots, enqueuer, nil
	}

	manager, err := a.jobManager(cfg, pool, registry, store, slots)
	if err != nil {
		return nil, nil, err
	}
	return slots, manager, nil
}

func (a *App) jobManager(cfg *config.Config, pool *pgxpool.Pool, registry *asset.Registry, store *storage.Retrying, slots *slotstore.Store) (*job.Manager, error) {
	jobMetrics, err := job.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	opts := []job.Option{
		job.WithLogger(a.log),
		job.WithMetrics(jobMetrics),
		job.WithMaxWorkers(cfg.Jobs.MaxWorkers),
		job.WithTaskTimeout(cfg.Jobs.TaskTimeout),
		job.WithTask(lifecycle.NewDeleteTask(store, registry, a.log)),
	}

	if cfg.Sweep.Enabled {
		sweepMetrics, err := sweep.NewMetrics(a.registry)
		if err != nil {
			return nil, err
		}
		sweeper, err := sweep.New(registry, store, slots,
			sweep.WithSchedule(cfg.Sweep.Schedule),
			sweep.WithGracePeriod(cfg.Sweep.GracePeriod),
			sweep.WithConcurrency(cfg.Sweep.Concurrency),
			sweep.WithBatchSize(cfg.Sweep.BatchSize),
			sweep.WithDryRun(cfg.Sweep.DryRun),
			sweep.WithLogger(a.log),
			sweep.WithMetrics(sweepMetrics),
		)
		if err != nil {
			return nil, fmt.Errorf("configure sweep: %w", err)
		}
		opts = append(opts, job.WithScheduledTask(sweeper))
		if cfg.Sweep.RunOnStart {
			opts = append(opts, job.WithRunOnStart())
		}
	}

	manager, err := job.NewManager(pool, opts...)
	if err != nil {
		return nil, err
	}
	// The client outlives the start context; Stop ends it.
	a.onStart(func(ctx context.Context) error {
		return manager.Start(context.WithoutCancel(ctx))
	})
	// Workers stop before the pool closes.
	a.shutdown = append([]server.Hook{manager.Shutdown()}, a.shutdown...)
	a.checks["jobs"] = job.Healthcheck(manager)
	return manager, nil
}

func (a *App) lifecycleManager(cfg *config.Config, pipeline *ingest.Pipeline, registry *asset.Registry, store *storage.Retrying, enqueuer lifecycle.Enqueuer) (*lifecycle.Manager, error) {
	m, err := lifecycle.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	var deleter lifecycle.Deleter
	switch cfg.Lifecycle.Deleter {
	case config.DeleterInline:
		deleter = lifecycle.NewInlineDeleter(store, registry)
	case config.DeleterAsync:
		async := lifecycle.NewAsyncDeleter(lifecycle.NewInlineDeleter(store, registry),
			lifecycle.WithConcurrency(cfg.Lifecycle.AsyncConcurrency),
			lifecycle.WithAsyncTimeout(cfg.Lifecycle.DeleteTimeout),
			lifecycle.WithAsyncLogger(a.log),
			lifecycle.WithAsyncMetrics(m),
		)
		// Drain pending deletes before the store and pool go away.
		a.shutdown = append([]server.Hook{async.Close}, a.shutdown...)
		deleter = async
	case config.DeleterJob:
		deleter = lifecycle.NewJobDeleter(enqueuer)
	default:
		return nil, fmt.Errorf("%w: unknown deleter %q", config.ErrInvalid, cfg.Lifecycle.Deleter)
	}

	return lifecycle.New(pipeline,
		lifecycle.WithDeleter(deleter),
		lifecycle.WithLogger(a.log),
		lifecycle.WithMetrics(m),
		lifecycle.WithDeleteTimeout(cfg.Lifecycle.DeleteTimeout),
	), nil
}

func (a *App) idempotencyCache(ctx context.Context, cfg *config.Config) (cache.Cache[upload.Response], error) {
	switch cfg.Upload.IdempotencyCache {
	case config.CacheOff:
		return nil, nil
	case config.CacheMemory:
		c := cache.NewMemory[upload.Response](
			cache.WithDefaultTTL(cfg.Upload.IdempotencyTTL),
			cache.WithMaxEntries(cfg.Upload.IdempotencyMax),
		)
		a.onShutdown(func(context.Context) error { return c.Close() })
		return c, nil
	case config.CacheRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onShutdown(redis.Shutdown(client))
		a.checks["redis"] = redis.Healthcheck(client)
		return cache.NewRedis[upload.Response](client, nil, idempotencyPrefix, cfg.Upload.IdempotencyTTL), nil
	default:
		return nil, fmt.Errorf("%w: unknown idempotency cache %q", config.ErrInvalid, cfg.Upload.IdempotencyCache)
	}
}

func (a *App) router(cfg *config.Config, uploads *upload.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middlewares.RequestID(),
		middlewares.AccessLog(a.log, middlewares.WithAccessLogSkipPaths(LivenessPath, ReadinessPath, cfg.MetricsPath)),
		middlewares.Recover(middlewares.WithRecoverLogger(a.log)),
		middlewares.CORS(middlewares.WithAllowOrigins(cfg.Upload.CORSOrigins...)),
	)

	r.Get(LivenessPath, health.LivenessHandler())
	r.Get(ReadinessPath, health.ReadinessHandler(a.checks, health.WithLogger(a.log)))
	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", uploads.Routes())
	return r
}
