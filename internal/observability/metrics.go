// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Tracker metrics
	DaysFetched      *prometheus.CounterVec
	ReadingsParsed   *prometheus.CounterVec
	TrackerLatency   prometheus.Histogram
	TrackerRetries   prometheus.Counter
	ReadingsUpserted *prometheus.CounterVec

	// Alignment metrics
	RecordsAligned  prometheus.Counter
	RowsImputed     *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	DatasetRowsSize prometheus.Gauge

	// Prediction metrics
	PredictionsTotal  *prometheus.CounterVec
	PredictionLatency prometheus.Histogram
	LabelsRecorded    *prometheus.CounterVec
	WSClients         prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "affect_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		DaysFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "days_fetched_total",
			Help:      "Total number of tracker day fetches by status",
		}, []string{"status"}),
		ReadingsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "readings_parsed_total",
			Help:      "Total number of readings parsed by signal",
		}, []string{"signal"}),
		TrackerLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "request_latency_seconds",
			Help:      "Tracker day request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TrackerRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "retries_total",
			Help:      "Total number of retried tracker requests",
		}),
		ReadingsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "readings_upserted_total",
			Help:      "Total number of readings written to storage by signal",
		}, []string{"signal"}),

		RecordsAligned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "records_aligned_total",
			Help:      "Total number of aligned records produced",
		}),
		RowsImputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "values_imputed_total",
			Help:      "Total number of imputed values by column",
		}, []string{"column"}),
		RowsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "rows_dropped_total",
			Help:      "Total number of rows dropped by reason",
		}, []string{"reason"}),
		DatasetRowsSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "dataset_rows",
			Help:      "Number of rows in the last built dataset",
		}),

		PredictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "predictions_total",
			Help:      "Total number of predictions by outcome",
		}, []string{"outcome"}),
		PredictionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "latency_seconds",
			Help:      "Prediction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LabelsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labels",
			Name:      "recorded_total",
			Help:      "Total number of emotion labels recorded by source",
		}, []string{"source"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "ws_clients",
			Help:      "Number of connected WebSocket clients",
		}),

		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordDayFetched counts a tracker day fetch outcome.
func RecordDayFetched(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	DefaultMetrics.DaysFetched.WithLabelValues(status).Inc()
}

// RecordReadingsParsed counts parsed readings for a signal.
func RecordReadingsParsed(signal string, n int) {
	DefaultMetrics.ReadingsParsed.WithLabelValues(signal).Add(float64(n))
}

// RecordTrackerLatency records a tracker request latency.
func RecordTrackerLatency(seconds float64) {
	DefaultMetrics.TrackerLatency.Observe(seconds)
}

// RecordTrackerRetry counts a retried tracker request.
func RecordTrackerRetry() {
	DefaultMetrics.TrackerRetries.Inc()
}

// RecordReadingsUpserted counts readings written for a signal.
func RecordReadingsUpserted(signal string, n int) {
	DefaultMetrics.ReadingsUpserted.WithLabelValues(signal).Add(float64(n))
}

// RecordAligned counts aligned records.
func RecordAligned(n int) {
	DefaultMetrics.RecordsAligned.Add(float64(n))
}

// RecordImputed counts imputed values in a column.
func RecordImputed(column string, n int) {
	if n > 0 {
		DefaultMetrics.RowsImputed.WithLabelValues(column).Add(float64(n))
	}
}

// RecordDropped counts dropped rows.
func RecordDropped(reason string, n int) {
	if n > 0 {
		DefaultMetrics.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// UpdateDatasetSize sets the dataset size gauge.
func UpdateDatasetSize(n int) {
	DefaultMetrics.DatasetRowsSize.Set(float64(n))
}

// RecordPrediction records a prediction outcome and latency.
func RecordPrediction(outcome string, seconds float64) {
	DefaultMetrics.PredictionsTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.PredictionLatency.Observe(seconds)
}

// RecordLabel counts a recorded emotion label.
func RecordLabel(source string) {
	DefaultMetrics.LabelsRecorded.WithLabelValues(source).Inc()
}

// UpdateWSClients sets the connected WebSocket client gauge.
func UpdateWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}
