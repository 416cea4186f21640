package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/metrics"
)

// Delete results.
const (
	resultDeleted     = "deleted"
	resultScheduled   = "scheduled"
	resultFailed      = "failed"
	resultInvalidURL  = "invalid_url"
	resultAsyncFailed = "async_failed"
)

// Metrics counts superseded-object deletes and orphaned objects.
// A nil *Metrics records nothing.
type Metrics struct {
	deletes *prometheus.CounterVec
	orphans *prometheus.CounterVec
}

// NewMetrics creates and registers the lifecycle collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	deletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "delete_total",
		Help:      "Deletes of superseded objects by category and result.",
	}, []string{"category", "result"})
	orphans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "lifecycle",
		Name:      "orphaned_objects_total",
		Help:      "Stored objects whose record commit failed.",
	}, []string{"category"})

	cs, err := metrics.Register(reg, deletes, orphans)
	if err != nil {
		return nil, err
	}
	return &Metrics{
		deletes: cs[0].(*prometheus.CounterVec),
		orphans: cs[1].(*prometheus.CounterVec),
	}, nil
}

func (m *Metrics) delete(c asset.Category, result string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(string(c), result).Inc()
}

func (m *Metrics) orphan(c asset.Category) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(string(c)).Inc()
}
