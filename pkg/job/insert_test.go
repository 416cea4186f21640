package job

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start insertParams
		opts  []EnqueueOption
		check func(t *testing.T, p insertParams)
	}{
		{
			name: "queue",
			opts: []EnqueueOption{InQueue("cleanup")},
			check: func(t *testing.T, p insertParams) {
				assert.Equal(t, "cleanup", p.Queue)
			},
		},
		{
			name:  "empty queue keeps previous",
			start: insertParams{InsertOpts: river.InsertOpts{Queue: "existing"}},
			opts:  []EnqueueOption{InQueue("")},
			check: func(t *testing.T, p insertParams) {
				assert.Equal(t, "existing", p.Queue)
			},
		},
		{
			name:  "non-positive attempts keep previous",
			start: insertParams{InsertOpts: river.InsertOpts{MaxAttempts: 10}},
			opts:  []EnqueueOption{MaxAttempts(0), MaxAttempts(-1)},
			check: func(t *testing.T, p insertParams) {
				assert.Equal(t, 10, p.MaxAttempts)
			},
		},
		{
			name: "tags append",
			opts: []EnqueueOption{Tags("asset_delete"), Tags("icon"), Tags()},
			check: func(t *testing.T, p insertParams) {
				assert.Equal(t, []string{"asset_delete", "icon"}, p.Tags)
			},
		},
		{
			name: "non-positive delay runs immediately",
			opts: []EnqueueOption{ScheduledIn(0), ScheduledIn(-time.Minute)},
			check: func(t *testing.T, p insertParams) {
				assert.True(t, p.ScheduledAt.IsZero())
			},
		},
		{
			name: "uniqueness",
			opts: []EnqueueOption{UniqueFor(time.Hour), UniqueKey("icon/abc123")},
			check: func(t *testing.T, p insertParams) {
				assert.Equal(t, time.Hour, p.uniqueFor)
				assert.Equal(t, "icon/abc123", p.uniqueKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := tt.start
			for _, opt := range tt.opts {
				opt(&p)
			}
			tt.check(t, p)
		})
	}
}

func TestScheduledIn(t *testing.T) {
	t.Parallel()

	var p insertParams
	before := time.Now()
	ScheduledIn(time.Hour)(&p)
	after := time.Now()

	assert.False(t, p.ScheduledAt.Before(before.Add(time.Hour)))
	assert.False(t, p.ScheduledAt.After(after.Add(time.Hour)))
}

func TestNewInsert(t *testing.T) {
	t.Parallel()

	t.Run("nil payload", func(t *testing.T) {
		t.Parallel()

		params, err := newInsert("asset_delete", nil, nil)
		require.NoError(t, err)
		args, ok := params.Args.(*taskArgs)
		require.True(t, ok)
		assert.Equal(t, "asset_delete", args.TaskName)
		assert.Empty(t, args.Payload)
		require.NotNil(t, params.InsertOpts)
		assert.Empty(t, params.InsertOpts.Queue)
	})

	t.Run("payload is encoded", func(t *testing.T) {
		t.Parallel()

		payload := deletePayload{Key: "abc123"}
		params, err := newInsert("asset_delete", payload, nil)
		require.NoError(t, err)

		var decoded deletePayload
		require.NoError(t, json.Unmarshal(params.Args.(*taskArgs).Payload, &decoded))
		assert.Equal(t, payload, decoded)
	})

	t.Run("unencodable payload", func(t *testing.T) {
		t.Parallel()

		_, err := newInsert("asset_delete", make(chan int), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marshal payload for asset_delete")
	})

	t.Run("insert options", func(t *testing.T) {
		t.Parallel()

		params, err := newInsert("asset_delete", nil, []EnqueueOption{
			InQueue("cleanup"),
			MaxAttempts(8),
			Tags("icon"),
			ScheduledIn(time.Minute),
		})
		require.NoError(t, err)
		assert.Empty(t, params.Args.(*taskArgs).UniqueKey)
		assert.Equal(t, "cleanup", params.InsertOpts.Queue)
		assert.Equal(t, 8, params.InsertOpts.MaxAttempts)
		assert.Equal(t, []string{"icon"}, params.InsertOpts.Tags)
		assert.True(t, params.InsertOpts.ScheduledAt.After(time.Now()))
		assert.Zero(t, params.InsertOpts.UniqueOpts.ByPeriod)
	})

	t.Run("unique by name and key", func(t *testing.T) {
		t.Parallel()

		params, err := newInsert("asset_delete", nil, []EnqueueOption{
			UniqueFor(time.Hour),
			UniqueKey("icon/abc123"),
		})
		require.NoError(t, err)
		assert.Equal(t, "icon/abc123", params.Args.(*taskArgs).UniqueKey)
		assert.True(t, params.InsertOpts.UniqueOpts.ByArgs)
		assert.Equal(t, time.Hour, params.InsertOpts.UniqueOpts.ByPeriod)
	})

	t.Run("unique key without period is ignored", func(t *testing.T) {
		t.Parallel()

		params, err := newInsert("asset_delete", nil, []EnqueueOption{UniqueKey("icon/abc123")})
		require.NoError(t, err)
		assert.Empty(t, params.Args.(*taskArgs).UniqueKey)
		assert.False(t, params.InsertOpts.UniqueOpts.ByArgs)
	})
}

func TestTaskArgs_Kind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "assetflow:task", taskArgs{TaskName: "asset_delete"}.Kind())
}

func TestCancel(t *testing.T) {
	t.Parallel()

	cause := errors.New("unknown category")
	err := Cancel(cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
