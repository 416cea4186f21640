package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/ingest"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// DefaultDeleteTimeout bounds one delete of a superseded object.
const DefaultDeleteTimeout = 30 * time.Second

// CommitFunc atomically points the owning record at obj and returns the URL
// it referenced before ("" when empty).
type CommitFunc func(ctx context.Context, obj asset.StoredObject) (previousURL string, err error)

// ClearFunc atomically empties the owning record and returns the URL it
// referenced before together with its category, both read in the same
// statement. A missing record returns "" for both.
type ClearFunc func(ctx context.Context) (previousURL string, c asset.Category, err error)

// Deleter removes or schedules removal of a superseded object.
type Deleter interface {
	Delete(ctx context.Context, obj asset.StoredObject) error
}

// Deferred is implemented by deleters whose Delete only hands the object to
// a background worker or a queue. Their accepted deletes are counted as
// scheduled, not deleted.
type Deferred interface {
	Deferred() bool
}

// Result describes a completed Bind or Release.
type Result struct {
	// Object is the newly bound object. Zero after Release.
	Object asset.StoredObject

	// Superseded is the object the record referenced before, if any.
	Superseded asset.StoredObject

	// Category is the category of the record. Empty after a Release that
	// found no record.
	Category asset.Category

	// CleanupErr is set when the superseded object could not be deleted.
	// The record change itself succeeded.
	CleanupErr error
}

// Manager keeps one current object per record: every bind stores the new
// object first, commits it, and only then removes the object it replaced.
type Manager struct {
	pipeline      *ingest.Pipeline
	deleter       Deleter
	logger        *slog.Logger
	metrics       *Metrics
	deleteTimeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithDeleter replaces the default synchronous deleter.
func WithDeleter(d Deleter) Option {
	return func(m *Manager) {
		if d != nil {
			m.deleter = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithDeleteTimeout sets how long a superseded delete may take once detached
// from the request.
func WithDeleteTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.deleteTimeout = d
		}
	}
}

// New creates a Manager. Superseded objects are deleted inline through the
// pipeline's store unless WithDeleter is given.
func New(pipeline *ingest.Pipeline, opts ...Option) *Manager {
	m := &Manager{
		pipeline:      pipeline,
		deleter:       NewInlineDeleter(pipeline.Store(), pipeline.Registry()),
		logger:        logger.NewNope(),
		deleteTimeout: DefaultDeleteTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bind ingests u and commits the stored object to its record. The previous
// object is deleted only after commit succeeded and only if it differs from
// the new one. A rejected upload returns the classified *asset.Error and
// never calls commit.
func (m *Manager) Bind(ctx context.Context, u asset.Upload, commit CommitFunc) (*Result, error) {
	if commit == nil {
		return nil, ErrNilCommit
	}

	outcome := m.pipeline.Ingest(ctx, u)
	obj, ok := outcome.Object()
	if !ok {
		return nil, outcome.Err()
	}

	previousURL, err := commit(ctx, obj)
	if err != nil {
		m.metrics.orphan(obj.Category)
		m.logger.ErrorContext(ctx, "commit failed, stored object left for sweep",
			slog.String("category", string(obj.Category)),
			slog.String("object_key", obj.Key),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	res := &Result{Object: obj, Category: obj.Category}
	m.supersede(ctx, obj.Category, previousURL, obj.Key, res)
	return res, nil
}

// Release empties a record and deletes the object it referenced. The
// category used for the delete is the one clear returned, so the folder and
// the key always come from the same read.
func (m *Manager) Release(ctx context.Context, clear ClearFunc) (*Result, error) {
	if clear == nil {
		return nil, ErrNilClear
	}

	previousURL, c, err := clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClearFailed, err)
	}

	res := &Result{Category: c}
	if previousURL == "" {
		return res, nil
	}
	if _, err := m.pipeline.Registry().Policy(c); err != nil {
		m.metrics.delete(c, resultFailed)
		m.logger.WarnContext(ctx, "released record has unknown category",
			slog.String("category", string(c)),
			slog.String("url", previousURL),
		)
		res.CleanupErr = err
		return res, nil
	}

	m.supersede(ctx, c, previousURL, "", res)
	return res, nil
}

// supersede deletes the object previousURL points at unless it is empty, a
// placeholder, or the object just bound.
func (m *Manager) supersede(ctx context.Context, c asset.Category, previousURL, currentKey string, res *Result) {
	old, err := asset.ObjectFromURL(c, previousURL)
	switch {
	case errors.Is(err, asset.ErrNoObject):
		return
	case err != nil:
		m.metrics.delete(c, resultInvalidURL)
		m.logger.WarnContext(ctx, "previous url references no object key",
			slog.String("category", string(c)),
			slog.String("url", previousURL),
		)
		res.CleanupErr = err
		return
	case old.Key == currentKey:
		return
	}
	res.Superseded = old

	// The record already changed; the delete must not die with the request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.deleteTimeout)
	defer cancel()

	if err := m.deleter.Delete(ctx, old); err != nil {
		m.metrics.delete(c, resultFailed)
		m.logger.WarnContext(ctx, "failed to delete superseded object",
			slog.String("category", string(c)),
			slog.String("object_key", old.Key),
			slog.Any("error", err),
		)
		res.CleanupErr = err
		return
	}
	if d, ok := m.deleter.(Deferred); ok && d.Deferred() {
		m.metrics.delete(c, resultScheduled)
		return
	}
	m.metrics.delete(c, resultDeleted)
}
