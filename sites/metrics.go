package sites

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync outcomes recorded in the operations counter.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback" // remote failed, local change kept
	OutcomeFailure  = "failure"
)

// Metrics provides observability for site synchronization.
type Metrics struct {
	// Remote operations by op (pull, create, update, delete) and outcome
	Operations *prometheus.CounterVec

	// Remote call latency by op
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the sync metrics with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ubigeo_site_sync_operations_total",
			Help: "Remote site operations by operation and outcome",
		}, []string{"op", "outcome"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ubigeo_site_sync_duration_seconds",
			Help:    "Duration of remote site operations",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
	}
}

// Observe records one remote call.
func (m *Metrics) Observe(op, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(op, outcome).Inc()
		m.Duration.WithLabelValues(op).Observe(d.Seconds())
	}
}
