package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/metrics"
)

const (
	resultRecent      = "recent"
	resultReferenced  = "referenced"
	resultDeleted     = "deleted"
	resultWouldDelete = "would_delete"
	resultFailed      = "failed"
)

// Metrics exports sweep results. A nil *Metrics records nothing.
type Metrics struct {
	results  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the sweep collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	objects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "sweep",
		Name:      "objects_total",
		Help:      "Objects examined by the sweep, by category and result.",
	}, []string{"category", "result"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Completed sweeps by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Time spent on one sweep.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	cs, err := metrics.Register(reg, objects, runs, duration)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		results:  cs[0].(*prometheus.CounterVec),
		runs:     cs[1].(*prometheus.CounterVec),
		duration: cs[2].(prometheus.Histogram),
	}, nil
}

func (m *Metrics) objects(c asset.Category, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.results.WithLabelValues(string(c), result).Add(float64(n))
}

func (m *Metrics) run(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}
