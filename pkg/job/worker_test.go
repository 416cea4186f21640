package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

func riverJob(name, payload string, attempt, maxAttempts int) *river.Job[taskArgs] {
	return &river.Job[taskArgs]{
		JobRow: &rivertype.JobRow{ID: 7, Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   taskArgs{TaskName: name, Payload: []byte(payload)},
	}
}

func TestWorker_Work(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	boom := errors.New("store unavailable")
	var seenTask string
	w := &worker{
		tasks: tasks{
			"asset_delete": typedHandler(func(ctx context.Context, p deletePayload) error {
				seenTask = logger.Value(ctx, "task")
				if p.Key == "fail" {
					return boom
				}
				return nil
			}),
		},
		logger:  logger.NewNope(),
		metrics: m,
	}

	ctx := context.Background()
	require.NoError(t, w.Work(ctx, riverJob("asset_delete", `{"object_key":"abc"}`, 1, 10)))
	assert.Equal(t, "asset_delete", seenTask)

	require.ErrorIs(t, w.Work(ctx, riverJob("asset_delete", `{"object_key":"fail"}`, 1, 10)), boom)
	require.ErrorIs(t, w.Work(ctx, riverJob("asset_delete", `{"object_key":"fail"}`, 10, 10)), boom)

	err = w.Work(ctx, riverJob("asset_delete", `[1,2]`, 1, 10))
	require.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, cancelled(err))

	require.ErrorIs(t, w.Work(ctx, riverJob("asset_resize", ``, 1, 10)), ErrUnknownTask)

	expected := `
# HELP assetflow_job_runs_total Task runs by task and result (success, failed, cancelled).
# TYPE assetflow_job_runs_total counter
assetflow_job_runs_total{result="cancelled",task="asset_delete"} 1
assetflow_job_runs_total{result="failed",task="asset_delete"} 2
assetflow_job_runs_total{result="failed",task="asset_resize"} 1
assetflow_job_runs_total{result="success",task="asset_delete"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "assetflow_job_runs_total"))
}

func TestWorker_Timeout(t *testing.T) {
	t.Parallel()

	assert.Zero(t, (&worker{}).Timeout(nil))
	assert.Equal(t, 10*time.Minute, (&worker{timeout: 10 * time.Minute}).Timeout(nil))
}

func TestWorker_NilMetrics(t *testing.T) {
	t.Parallel()

	w := &worker{tasks: tasks{"asset_sweep": periodicHandler(func(context.Context) error { return nil })}, logger: logger.NewNope()}
	require.NoError(t, w.Work(context.Background(), riverJob("asset_sweep", ``, 1, 1)))
}
