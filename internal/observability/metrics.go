// Package observability holds the Prometheus metrics for ingestion and queries.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "argodesk"

// Metrics holds the Prometheus counters and histograms for the float pipeline.
type Metrics struct {
	// Ingestion metrics.
	FilesIngested  *prometheus.CounterVec // labels: outcome={inserted,updated,failed}
	IngestDuration prometheus.Histogram
	FloatsDeleted  prometheus.Counter
	FileCleanupErr prometheus.Counter

	// Query metrics.
	Queries          *prometheus.CounterVec // labels: intent
	QueryMatches     prometheus.Histogram
	HistoryWriteErrs prometheus.Counter

	// Remote fetch metrics.
	Fetches *prometheus.CounterVec // labels: scheme={http,https,ftp}, outcome={success,error}
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics()
	reg.MustRegister(
		m.FilesIngested,
		m.IngestDuration,
		m.FloatsDeleted,
		m.FileCleanupErr,
		m.Queries,
		m.QueryMatches,
		m.HistoryWriteErrs,
		m.Fetches,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Profile files ingested by outcome.",
		}, []string{"outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time to normalize and store one profile file.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FloatsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "floats_deleted_total",
			Help:      "Float records deleted.",
		}),
		FileCleanupErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_cleanup_errors_total",
			Help:      "Backing files that could not be removed after a delete.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Free-text questions answered by intent.",
		}, []string{"intent"}),
		QueryMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_matched_floats",
			Help:      "Number of float records matched by a data query.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		HistoryWriteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_history_write_errors_total",
			Help:      "Answered questions that could not be written to the query history.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fetches_total",
			Help:      "Remote profile file downloads by scheme and outcome.",
		}, []string{"scheme", "outcome"}),
	}
}
