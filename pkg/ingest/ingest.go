package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// cleanupTimeout bounds the best-effort delete of an object created by a
// cancelled request.
const cleanupTimeout = 30 * time.Second

// Pipeline validates uploads against their category policy and streams
// accepted payloads to the store. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	registry *asset.Registry
	store    asset.Store
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline over the given registry and store.
func New(registry *asset.Registry, store asset.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		store:    store,
		logger:   logger.NewNope(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the policy registry the pipeline validates against.
func (p *Pipeline) Registry() *asset.Registry {
	return p.registry
}

// Store returns the underlying store.
func (p *Pipeline) Store() asset.Store {
	return p.store
}

// Ingest runs one upload through the pipeline. The store is called at most
// once, and never for a rejected upload.
func (p *Pipeline) Ingest(ctx context.Context, u asset.Upload) asset.Outcome {
	start := p.now()
	outcome := p.ingest(ctx, u)
	p.record(ctx, u, outcome, p.now().Sub(start))
	return outcome
}

func (p *Pipeline) ingest(ctx context.Context, u asset.Upload) asset.Outcome {
	policy, err := p.registry.Policy(u.Category)
	if err != nil {
		return rejected(err)
	}

	if err := asset.Validate(policy, u); err != nil {
		return rejected(err)
	}

	body, err := peek(u.Body)
	switch {
	case errors.Is(err, errEmptyBody):
		return asset.RejectedWith(asset.Empty())
	case err != nil:
		return asset.RejectedWith(asset.UploadFailed(err))
	}

	limited := limitBody(body, policy.MaxSize)
	u.Body = limited

	obj, err := p.store.Put(ctx, policy, u)
	if err != nil {
		if limited.exceeded() {
			return asset.RejectedWith(asset.TooLarge(policy))
		}
		return asset.RejectedWith(asset.UploadFailed(err))
	}

	if ctx.Err() != nil {
		p.discard(ctx, policy, obj)
		return asset.RejectedWith(asset.UploadFailed(context.Cause(ctx)))
	}

	return asset.Success(obj)
}

// discard removes an object stored for a request that was cancelled before
// the outcome could be delivered. Failures leave the object to the sweep.
func (p *Pipeline) discard(ctx context.Context, policy asset.Policy, obj asset.StoredObject) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := p.store.Delete(ctx, policy, obj.Key); err != nil {
		p.metrics.orphaned(policy.Category)
		p.logger.WarnContext(ctx, "failed to discard object of cancelled upload",
			slog.String("category", string(policy.Category)),
			slog.String("object_key", obj.Key),
			slog.Any("error", err),
		)
	}
}

func (p *Pipeline) record(ctx context.Context, u asset.Upload, o asset.Outcome, elapsed time.Duration) {
	p.metrics.observe(u.Category, o, elapsed)

	if obj, ok := o.Object(); ok {
		p.logger.InfoContext(ctx, "asset stored",
			slog.String("category", string(u.Category)),
			slog.String("object_key", obj.Key),
			slog.Int64("size", obj.Size),
			slog.Duration("elapsed", elapsed),
		)
		return
	}

	level := slog.LevelInfo
	if o.Kind() == asset.KindUploadFailed {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "asset rejected",
		slog.String("category", string(u.Category)),
		slog.String("kind", string(o.Kind())),
		slog.Any("error", o.Err()),
	)
}

// rejected turns a classified error into a rejected outcome.
func rejected(err error) asset.Outcome {
	var aerr *asset.Error
	if errors.As(err, &aerr) {
		return asset.RejectedWith(aerr)
	}
	return asset.RejectedWith(asset.UploadFailed(err))
}
