// Package metrics holds the Prometheus instruments for batch clustering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all clustering metrics.
type Metrics struct {
	BatchesTotal prometheus.Counter
	BatchSize    prometheus.Histogram
	ResultMisses prometheus.Counter
}

// New creates and registers the metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		BatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metalab_cluster_batches_total",
			Help: "Completed batch clusterings.",
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "metalab_cluster_batch_size",
			Help:    "Documents per clustering batch.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		ResultMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "metalab_cluster_result_misses_total",
			Help: "Result fetches that found nothing (expired or unknown id).",
		}),
	}
}

// ObserveBatch records one completed batch.
func (m *Metrics) ObserveBatch(docs int) {
	m.BatchesTotal.Inc()
	m.BatchSize.Observe(float64(docs))
}
