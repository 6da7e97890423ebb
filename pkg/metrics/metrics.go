// Package metrics defines the Prometheus collectors shared by the wave
// platform binaries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Generation Metrics
	GenerationRunsTotal *prometheus.CounterVec
	GenerationDuration  prometheus.Histogram
	RegridDuration      prometheus.Histogram
	GridCells           *prometheus.GaugeVec
	GridMaxHeight       prometheus.Gauge
	SamplesAcquired     prometheus.Histogram
	SourceErrorsTotal   *prometheus.CounterVec
	ArtifactBytes       prometheus.Gauge

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector registers all collectors on the default registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith registers all collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so that collectors can be created repeatedly.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		GenerationRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_runs_total",
				Help:      "Total number of grid generation runs by source and status",
			},
			[]string{"source", "status"},
		),

		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "End-to-end duration of a generation run in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1200},
			},
		),

		RegridDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "regrid_duration_seconds",
				Help:      "Duration of the nearest-neighbour regrid in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		GridCells: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "grid_cells",
				Help:      "Cells of the latest grid by class",
			},
			[]string{"class"}, // "land", "ocean", "empty"
		),

		GridMaxHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "grid_max_wave_height_meters",
				Help:      "Largest significant wave height in the latest grid",
			},
		),

		SamplesAcquired: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "samples_acquired",
				Help:      "Number of wave samples acquired per run",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
		),

		SourceErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total number of sample acquisition failures by source",
			},
			[]string{"source"},
		),

		ArtifactBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "artifact_bytes",
				Help:      "Size of the latest velocity artifact in bytes",
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
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

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordGeneration counts a finished generation run.
func (c *Collector) RecordGeneration(source, status string) {
	c.GenerationRunsTotal.WithLabelValues(source, status).Inc()
}

// RecordSourceError counts a failed sample acquisition.
func (c *Collector) RecordSourceError(source string) {
	c.SourceErrorsTotal.WithLabelValues(source).Inc()
}

// UpdateGridCells publishes the cell classes of the latest grid.
func (c *Collector) UpdateGridCells(land, ocean, empty int) {
	c.GridCells.WithLabelValues("land").Set(float64(land))
	c.GridCells.WithLabelValues("ocean").Set(float64(ocean))
	c.GridCells.WithLabelValues("empty").Set(float64(empty))
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
