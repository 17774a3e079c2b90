// Package metrics holds the Prometheus instruments for the verification
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all verification metrics.
type Metrics struct {
	ChecksTotal   *prometheus.CounterVec
	CheckDuration prometheus.Histogram
}

// New creates and registers the metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "metalab_checks_total",
			Help: "Template checks by verdict outcome.",
		}, []string{"outcome"}),
		CheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "metalab_check_duration_seconds",
			Help:    "End-to-end duration of one template check.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveCheck records one completed check.
func (m *Metrics) ObserveCheck(pass bool, seconds float64) {
	outcome := "fail"
	if pass {
		outcome = "pass"
	}
	m.ChecksTotal.WithLabelValues(outcome).Inc()
	m.CheckDuration.Observe(seconds)
}
