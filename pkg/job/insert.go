package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/riverqueue/river"
)

// taskKind is the single River job kind used for every task.
const taskKind = "assetflow:task"

// taskArgs carries a task name and its JSON payload. Uniqueness is computed
// from the task name and the unique key only, never from the payload.
type taskArgs struct {
	TaskName  string          `json:"task_name" river:"unique"`
	UniqueKey string          `json:"unique_key,omitempty" river:"unique"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string { return taskKind }

// EnqueueOption adjusts how a single job is inserted.
type EnqueueOption func(*insertParams)

type insertParams struct {
	river.InsertOpts
	uniqueKey string
	uniqueFor time.Duration
}

// InQueue puts the job on a named queue. An empty name keeps the default.
func InQueue(name string) EnqueueOption {
	return func(p *insertParams) {
		if name != "" {
			p.Queue = name
		}
	}
}

// ScheduledIn delays the job by d. Non-positive durations run it immediately.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(p *insertParams) {
		if d > 0 {
			p.ScheduledAt = time.Now().Add(d)
		}
	}
}

// MaxAttempts caps retries. Without it River's default of 25 applies.
func MaxAttempts(n int) EnqueueOption {
	return func(p *insertParams) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

// UniqueFor skips the insert when a job with the same task name and unique
// key was inserted within d.
func UniqueFor(d time.Duration) EnqueueOption {
	return func(p *insertParams) {
		p.uniqueFor = d
	}
}

// UniqueKey narrows UniqueFor to one subject, e.g. "icon/<key>". It has no
// effect on its own.
func UniqueKey(key string) EnqueueOption {
	return func(p *insertParams) {
		p.uniqueKey = key
	}
}

// Tags labels the job for inspection in River's tables.
func Tags(tags ...string) EnqueueOption {
	return func(p *insertParams) {
		p.Tags = append(p.Tags, tags...)
	}
}

// newInsert encodes payload and applies opts, producing what River's Insert
// expects.
func newInsert(name string, payload any, opts []EnqueueOption) (river.InsertManyParams, error) {
	args := &taskArgs{TaskName: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return river.InsertManyParams{}, fmt.Errorf("job: marshal payload for %s: %w", name, err)
		}
		args.Payload = raw
	}

	var p insertParams
	for _, opt := range opts {
		opt(&p)
	}
	if p.uniqueFor > 0 {
		args.UniqueKey = p.uniqueKey
		p.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: p.uniqueFor}
	}

	return river.InsertManyParams{Args: args, InsertOpts: &p.InsertOpts}, nil
}

// Cancel marks err as permanent so the job is not retried.
func Cancel(err error) error {
	return river.JobCancel(err)
}
