package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/metrics"
)

// Metrics exports ingest outcomes to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	orphans  *prometheus.CounterVec
}

// NewMetrics creates and registers the ingest collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "ingest",
		Name:      "outcomes_total",
		Help:      "Ingest outcomes by category and result (success or rejection kind).",
	}, []string{"category", "result"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "ingest",
		Name:      "stored_bytes_total",
		Help:      "Bytes successfully stored by category.",
	}, []string{"category"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Time spent ingesting one upload.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"category"})
	orphans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "ingest",
		Name:      "orphaned_objects_total",
		Help:      "Objects of cancelled uploads that could not be discarded.",
	}, []string{"category"})

	cs, err := metrics.Register(reg, outcomes, bytes, duration, orphans)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		outcomes: cs[0].(*prometheus.CounterVec),
		bytes:    cs[1].(*prometheus.CounterVec),
		duration: cs[2].(*prometheus.HistogramVec),
		orphans:  cs[3].(*prometheus.CounterVec),
	}, nil
}

func (m *Metrics) observe(c asset.Category, o asset.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	category := string(c)
	if !c.Valid() {
		category = "unknown"
	}

	result := "success"
	if !o.OK() {
		result = string(o.Kind())
	}
	m.outcomes.WithLabelValues(category, result).Inc()
	m.duration.WithLabelValues(category).Observe(elapsed.Seconds())
	if obj, ok := o.Object(); ok {
		m.bytes.WithLabelValues(category).Add(float64(obj.Size))
	}
}

func (m *Metrics) orphaned(c asset.Category) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(string(c)).Inc()
}
