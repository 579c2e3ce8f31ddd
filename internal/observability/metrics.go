package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geo_ingest"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest worker.
type Metrics struct {
	JobsConsumed    prometheus.Counter
	ReportsProduced prometheus.Counter
	JobErrors       prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Ingestion metrics.
	IngestRows     *prometheus.CounterVec   // labels: kind, outcome={candidate,written,duplicate,already_persisted,filled}
	UnresolvedRows *prometheus.CounterVec   // labels: kind, reason={unknown_province,unknown_district,outside_region,invalid}
	IngestDuration *prometheus.HistogramVec // labels: kind, status={succeeded,failed}

	// Spatial join metrics.
	JoinPoints   *prometheus.CounterVec // labels: outcome={matched,missing,outside}
	TilesSkipped prometheus.Counter

	CleanupFailures prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_consumed_total",
			Help:      "Total ingest jobs read from the job topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total ingest reports written to the report topic.",
		}),
		JobErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_errors_total",
			Help:      "Total jobs that could not be decoded or failed to ingest.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the worker is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of jobs per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-ingest-report cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		IngestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Record counts by upload kind and outcome.",
		}, []string{"kind", "outcome"}),
		UnresolvedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_rows_total",
			Help:      "Source rows dropped before writing, by upload kind and reason.",
		}, []string{"kind", "reason"}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of one ingestion by upload kind and status.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind", "status"}),
		JoinPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_points_total",
			Help:      "Raster cells seen by the spatial join, by outcome.",
		}, []string{"outcome"}),
		TilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_tiles_skipped_total",
			Help:      "Raster tiles skipped because no boundary polygon intersects them.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Consumed source files that could not be removed.",
		}),
	}
}

// NewMetrics creates and registers all worker metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.JobsConsumed,
		m.ReportsProduced,
		m.JobErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.IngestRows,
		m.UnresolvedRows,
		m.IngestDuration,
		m.JoinPoints,
		m.TilesSkipped,
		m.CleanupFailures,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
