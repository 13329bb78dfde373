package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides pipeline metrics collection. Each collector owns its
// registry, so repeated construction (tests, reruns) never collides with
// the process-global default registry.
type Collector struct {
	registry *prometheus.Registry

	// Ingestion metrics
	ReadingsIngestedTotal prometheus.Counter
	IngestErrorsTotal     *prometheus.CounterVec
	MissingPowerTotal     prometheus.Counter

	// Pipeline metrics
	MetersDroppedTotal    prometheus.Counter
	PipelineWarningsTotal *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
	ClusterCount          prometheus.Gauge

	// Output metrics
	ArtifactsWrittenTotal *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		ReadingsIngestedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_ingested_total",
				Help:      "Total number of AMI readings parsed from the input",
			},
		),

		IngestErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_errors_total",
				Help:      "Total number of rejected input rows by error type",
			},
			[]string{"error_type"},
		),

		MissingPowerTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_power_total",
				Help:      "Total number of readings ingested with a missing power value",
			},
		),

		MetersDroppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meters_dropped_total",
				Help:      "Meters excluded from the feature matrix for incomplete bucket coverage",
			},
		),

		PipelineWarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_warnings_total",
				Help:      "Recoverable per-meter anomalies by warning type",
			},
			[]string{"warning_type"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),

		ClusterCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cluster_count",
				Help:      "Number of load-shape clusters produced",
			},
		),

		ArtifactsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_written_total",
				Help:      "Output artifacts written by kind",
			},
			[]string{"kind"},
		),
	}
}

// Registry exposes the collector's registry for the /metrics endpoint
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Timer provides timing functionality for pipeline stages
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewStageTimer creates a timer observing into the stage histogram
func (c *Collector) NewStageTimer(stage string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: c.StageDuration.WithLabelValues(stage),
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordIngestError increments the rejected-row counter
func (c *Collector) RecordIngestError(errorType string) {
	c.IngestErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordWarning increments the per-meter warning counter
func (c *Collector) RecordWarning(warningType string) {
	c.PipelineWarningsTotal.WithLabelValues(warningType).Inc()
}

// RecordArtifact increments the written-artifact counter
func (c *Collector) RecordArtifact(kind string) {
	c.ArtifactsWrittenTotal.WithLabelValues(kind).Inc()
}
