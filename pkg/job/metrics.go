package job

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/assetflow/pkg/metrics"
)

const (
	resultSuccess   = "success"
	resultFailed    = "failed"
	resultCancelled = "cancelled"
)

// Metrics counts task runs. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the job collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "job",
		Name:      "runs_total",
		Help:      "Task runs by task and result (success, failed, cancelled).",
	}, []string{"task", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "job",
		Name:      "duration_seconds",
		Help:      "Time spent running one task attempt.",
		Buckets:   prometheus.ExponentialBuckets(.01, 4, 10),
	}, []string{"task"})

	cs, err := metrics.Register(reg, runs, duration)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		runs:     cs[0].(*prometheus.CounterVec),
		duration: cs[1].(*prometheus.HistogramVec),
	}, nil
}

func (m *Metrics) observe(task, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(task, result).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(task).Observe(elapsed.Seconds())
	}
}
