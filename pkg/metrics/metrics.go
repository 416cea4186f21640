// Package metrics holds shared Prometheus registration helpers.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector exported by the service.
const Namespace = "assetflow"

// Register registers collectors with reg, reusing collectors that are already
// registered under the same descriptor. A nil reg uses the default registerer.
// The returned slice holds the collectors actually in use, in input order.
func Register(reg prometheus.Registerer, collectors ...prometheus.Collector) ([]prometheus.Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	out := make([]prometheus.Collector, 0, len(collectors))
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				out = append(out, are.ExistingCollector)
				continue
			}
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
