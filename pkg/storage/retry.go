package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// Retrying decorates a store with bounded exponential backoff and per-call
// timeouts. Only transient store errors are retried.
type Retrying struct {
	store  asset.Store
	logger *slog.Logger
	cfg    RetryConfig
}

// RetryOption configures the retry decorator.
type RetryOption func(*Retrying)

// WithRetryConfig replaces the whole retry configuration.
func WithRetryConfig(cfg RetryConfig) RetryOption {
	return func(r *Retrying) {
		r.cfg = cfg
		r.cfg.applyDefaults()
	}
}

// WithMaxAttempts caps the number of calls, the first one included.
func WithMaxAttempts(n uint64) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.cfg.MaxAttempts = n
		}
	}
}

// WithBackoff sets the base and maximum delay between attempts.
func WithBackoff(base, maxDelay time.Duration) RetryOption {
	return func(r *Retrying) {
		if base > 0 {
			r.cfg.BaseDelay = base
		}
		if maxDelay > 0 {
			r.cfg.MaxDelay = maxDelay
		}
	}
}

// WithPutTimeout bounds every Put call.
func WithPutTimeout(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.cfg.PutTimeout = d
		}
	}
}

// WithDeleteTimeout bounds every Delete call.
func WithDeleteTimeout(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.cfg.DeleteTimeout = d
		}
	}
}

// WithRetryLogger sets the logger used to report retried calls.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(r *Retrying) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetry wraps store with the retry decorator.
func WithRetry(store asset.Store, opts ...RetryOption) *Retrying {
	r := &Retrying{
		store:  store,
		logger: logger.NewNope(),
	}
	r.cfg.applyDefaults()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Unwrap returns the decorated store.
func (r *Retrying) Unwrap() asset.Store {
	return r.store
}

// Put uploads with retries. A failed attempt is only retried when the body can
// be replayed: it is seekable, or the failed attempt consumed none of it.
func (r *Retrying) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	seeker, seekable := u.Body.(io.Seeker)
	var start int64
	if seekable {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			seekable = false
		}
		start = pos
	}

	body := &countingReader{r: u.Body}
	attempt := 0

	var (
		obj     asset.StoredObject
		lastErr error
	)
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 && seekable {
			if _, err := seeker.Seek(start, io.SeekStart); err != nil {
				return storeError("put", err)
			}
			body.n = 0
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.PutTimeout)
		defer cancel()

		in := u
		in.Body = body
		out, err := r.store.Put(callCtx, p, in)
		if err == nil {
			obj = out
			return nil
		}

		lastErr = r.classify(ctx, callCtx, "put", err)
		if !asset.IsTransient(lastErr) || (!seekable && body.n > 0) {
			return lastErr
		}
		r.logRetry(ctx, "put", p, attempt, lastErr)
		return retry.RetryableError(lastErr)
	})

	return obj, r.finalError("put", err, lastErr)
}

// Delete removes the object with retries.
func (r *Retrying) Delete(ctx context.Context, p asset.Policy, key string) error {
	attempt := 0
	var lastErr error
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.DeleteTimeout)
		defer cancel()

		err := r.store.Delete(callCtx, p, key)
		if err == nil {
			return nil
		}

		lastErr = r.classify(ctx, callCtx, "delete", err)
		if !asset.IsTransient(lastErr) {
			return lastErr
		}
		r.logRetry(ctx, "delete", p, attempt, lastErr)
		return retry.RetryableError(lastErr)
	})

	return r.finalError("delete", err, lastErr)
}

// List delegates to the decorated store when it supports listing.
func (r *Retrying) List(ctx context.Context, p asset.Policy, fn func(asset.ListedObject) error) error {
	lister, ok := r.store.(asset.Lister)
	if !ok {
		return ErrListNotSupported
	}
	return lister.List(ctx, p, fn)
}

// Ping delegates to the decorated store when it supports pinging.
func (r *Retrying) Ping(ctx context.Context) error {
	if pinger, ok := r.store.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

func (r *Retrying) backoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.BaseDelay)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(r.cfg.MaxDelay, b)
	return retry.WithMaxRetries(r.cfg.MaxAttempts-1, b)
}

// classify makes sure err is a StoreError and marks per-call timeouts as
// transient while the parent context is still alive.
func (r *Retrying) classify(parent, call context.Context, op string, err error) error {
	if parent.Err() == nil && errors.Is(call.Err(), context.DeadlineExceeded) {
		return &asset.StoreError{Op: op, Transient: true, Err: errors.Join(ErrCallTimeout, err)}
	}
	return storeError(op, err)
}

// finalError prefers the last store error over the context error retry.Do
// returns when the caller gives up between attempts.
func (r *Retrying) finalError(op string, err, lastErr error) error {
	switch {
	case err == nil:
		return nil
	case lastErr == nil:
		return storeError(op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return lastErr
	}
	return err
}

func (r *Retrying) logRetry(ctx context.Context, op string, p asset.Policy, attempt int, err error) {
	r.logger.WarnContext(ctx, "retrying store call",
		slog.String("op", op),
		slog.String("category", string(p.Category)),
		slog.Int("attempt", attempt),
		slog.Any("error", err),
	)
}

// countingReader counts bytes read from the wrapped reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var (
	_ asset.Store  = (*Retrying)(nil)
	_ asset.Lister = (*Retrying)(nil)
	_ Pinger       = (*Retrying)(nil)
)
