package job

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deletePayload struct {
	Key string `json:"object_key"`
}

type deleteTask struct {
	got []deletePayload
	err error
}

func (t *deleteTask) Name() string { return "asset_delete" }

func (t *deleteTask) Handle(_ context.Context, p deletePayload) error {
	t.got = append(t.got, p)
	return t.err
}

type sweepTask struct {
	schedule string
	runs     int
}

func (t *sweepTask) Name() string     { return "asset_sweep" }
func (t *sweepTask) Schedule() string { return t.schedule }

func (t *sweepTask) Handle(context.Context) error {
	t.runs++
	return nil
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	assert.Empty(t, cfg.tasks)
	assert.Empty(t, cfg.queues)
	assert.Empty(t, cfg.schedules)
	assert.NotNil(t, cfg.logger)
	assert.Nil(t, cfg.metrics)
	assert.Equal(t, defaultMaxWorkers, cfg.maxWorkers)
	assert.Zero(t, cfg.taskTimeout)
	assert.False(t, cfg.runOnStart)
}

func TestWithTask(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	task := &deleteTask{}
	WithTask(task)(cfg)

	run, ok := cfg.tasks["asset_delete"]
	require.True(t, ok)
	require.NoError(t, run(context.Background(), []byte(`{"object_key":"abc"}`)))
	assert.Equal(t, []deletePayload{{Key: "abc"}}, task.got)
}

func TestWithScheduledTask(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	task := &sweepTask{schedule: "@hourly"}
	WithScheduledTask(task)(cfg)

	require.Len(t, cfg.schedules, 1)
	assert.Equal(t, "asset_sweep", cfg.schedules[0].name)
	assert.Equal(t, "@hourly", cfg.schedules[0].schedule)
	require.NoError(t, cfg.schedules[0].handler(context.Background()))
	assert.Equal(t, 1, task.runs)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := &Metrics{}

	tests := []struct {
		check func(t *testing.T, c *config)
		name  string
		opts  []Option
	}{
		{
			name:  "queue",
			opts:  []Option{WithQueue("cleanup", 10)},
			check: func(t *testing.T, c *config) { assert.Equal(t, map[string]int{"cleanup": 10}, c.queues) },
		},
		{
			name:  "queue without workers or name is ignored",
			opts:  []Option{WithQueue("cleanup", 0), WithQueue("cleanup", -5), WithQueue("", 5)},
			check: func(t *testing.T, c *config) { assert.Empty(t, c.queues) },
		},
		{
			name:  "logger",
			opts:  []Option{WithLogger(log)},
			check: func(t *testing.T, c *config) { assert.Same(t, log, c.logger) },
		},
		{
			name:  "nil logger keeps the default",
			opts:  []Option{WithLogger(log), WithLogger(nil)},
			check: func(t *testing.T, c *config) { assert.Same(t, log, c.logger) },
		},
		{
			name:  "max workers",
			opts:  []Option{WithMaxWorkers(50)},
			check: func(t *testing.T, c *config) { assert.Equal(t, 50, c.maxWorkers) },
		},
		{
			name:  "non-positive max workers are ignored",
			opts:  []Option{WithMaxWorkers(0), WithMaxWorkers(-10)},
			check: func(t *testing.T, c *config) { assert.Equal(t, defaultMaxWorkers, c.maxWorkers) },
		},
		{
			name:  "task timeout",
			opts:  []Option{WithTaskTimeout(10 * time.Minute)},
			check: func(t *testing.T, c *config) { assert.Equal(t, 10*time.Minute, c.taskTimeout) },
		},
		{
			name:  "metrics",
			opts:  []Option{WithMetrics(m)},
			check: func(t *testing.T, c *config) { assert.Same(t, m, c.metrics) },
		},
		{
			name:  "run on start",
			opts:  []Option{WithRunOnStart()},
			check: func(t *testing.T, c *config) { assert.True(t, c.runOnStart) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := newConfig()
			for _, opt := range tt.opts {
				opt(cfg)
			}
			tt.check(t, cfg)
		})
	}
}

func TestNewManager_NilPool(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}

func TestConfig_RiverConfig(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithTask(&deleteTask{})(cfg)
	WithScheduledTask(&sweepTask{schedule: "*/15 * * * *"})(cfg)
	WithQueue("cleanup", 3)(cfg)
	WithMaxWorkers(7)(cfg)

	rc, err := cfg.riverConfig()
	require.NoError(t, err)

	assert.Len(t, rc.PeriodicJobs, 1)
	assert.Equal(t, 7, rc.Queues[river.QueueDefault].MaxWorkers)
	assert.Equal(t, 3, rc.Queues["cleanup"].MaxWorkers)
	assert.Equal(t, []string{"asset_delete", "asset_sweep"}, cfg.tasks.names())
}

func TestConfig_RiverConfigInvalidSchedule(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithScheduledTask(&sweepTask{schedule: "every hour"})(cfg)

	_, err := cfg.riverConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid cron schedule "every hour" for asset_sweep`)
}
