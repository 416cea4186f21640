package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/job"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// DeleteTaskName is the job task that deletes superseded objects.
const DeleteTaskName = "asset_delete"

// DeletePayload identifies an object to delete.
type DeletePayload struct {
	Category asset.Category `json:"category"`
	Key      string         `json:"object_key"`
	URL      string         `json:"url,omitempty"`
}

// Enqueuer is satisfied by *job.Manager and *job.Enqueuer.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
}

// JobDeleter hands deletes to the job queue, which retries them until they
// succeed. Duplicate requests for the same object within an hour collapse
// into one job.
type JobDeleter struct {
	enqueuer Enqueuer
	opts     []job.EnqueueOption
}

// NewJobDeleter creates a deleter that enqueues DeleteTaskName jobs.
// opts are appended to the defaults.
func NewJobDeleter(e Enqueuer, opts ...job.EnqueueOption) *JobDeleter {
	return &JobDeleter{enqueuer: e, opts: opts}
}

func (d *JobDeleter) Delete(ctx context.Context, obj asset.StoredObject) error {
	opts := append([]job.EnqueueOption{
		job.MaxAttempts(10),
		job.UniqueFor(time.Hour),
		job.UniqueKey(string(obj.Category) + "/" + obj.Key),
		job.Tags(DeleteTaskName, string(obj.Category)),
	}, d.opts...)

	return d.enqueuer.Enqueue(ctx, DeleteTaskName, DeletePayload{
		Category: obj.Category,
		Key:      obj.Key,
		URL:      obj.URL,
	}, opts...)
}

// Deferred reports true: the delete runs later in a job worker.
func (d *JobDeleter) Deferred() bool { return true }

// DeleteTask executes DeleteTaskName jobs.
type DeleteTask struct {
	deleter *InlineDeleter
	logger  *slog.Logger
}

// NewDeleteTask creates the worker side of JobDeleter.
func NewDeleteTask(store asset.Store, registry *asset.Registry, l *slog.Logger) *DeleteTask {
	if l == nil {
		l = logger.NewNope()
	}
	return &DeleteTask{
		deleter: NewInlineDeleter(store, registry),
		logger:  l,
	}
}

func (t *DeleteTask) Name() string { return DeleteTaskName }

// Handle deletes the object. Malformed payloads are cancelled instead of
// retried.
func (t *DeleteTask) Handle(ctx context.Context, p DeletePayload) error {
	if p.Key == "" {
		return job.Cancel(ErrInvalidPayload)
	}

	err := t.deleter.Delete(ctx, asset.StoredObject{Category: p.Category, Key: p.Key, URL: p.URL})
	if errors.Is(err, asset.ErrUnknownCategory) {
		return job.Cancel(errors.Join(ErrInvalidPayload, err))
	}
	if err != nil {
		return err
	}

	t.logger.DebugContext(ctx, "superseded object deleted",
		slog.String("category", string(p.Category)),
		slog.String("object_key", p.Key),
	)
	return nil
}
