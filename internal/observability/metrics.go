package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_impact"

// Metrics holds the Prometheus counters, histograms, and gauges for the analysis pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ReportsProduced  prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Analysis metrics.
	RoadsClassified *prometheus.CounterVec // labels: outcome={in_hazard,near_hazard,unaffected}
	AreaFailures    prometheus.Counter
	HazardAreaKm2   prometheus.Histogram

	// Road source metrics.
	RoadFetchRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	RoadFetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	RoadFetchDuration prometheus.Histogram
	RoadSourceEnabled prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ReportsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RoadsClassified,
		m.AreaFailures,
		m.HazardAreaKm2,
		m.RoadFetchRequests,
		m.RoadFetchCache,
		m.RoadFetchDuration,
		m.RoadSourceEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total analysis requests read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total impact reports written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total requests that could not be analyzed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RoadsClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roads_classified_total",
			Help:      "Roads classified, by outcome.",
		}, []string{"outcome"}),
		AreaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "area_failures_total",
			Help:      "Reports whose hazard area could not be estimated.",
		}),
		HazardAreaKm2: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hazard_area_km2",
			Help:      "Estimated hazard area per report in square kilometers.",
			Buckets:   []float64{0.01, 0.1, 1, 10, 100, 1000, 10000},
		}),
		RoadFetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "road_fetch_requests_total",
			Help:      "Road source API requests by outcome.",
		}, []string{"outcome"}),
		RoadFetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "road_fetch_cache_total",
			Help:      "Road source cache lookups by result.",
		}, []string{"result"}),
		RoadFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "road_fetch_duration_seconds",
			Help:      "Road source API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		RoadSourceEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "road_source_enabled",
			Help:      "1 when roads are fetched for requests that carry none, 0 otherwise.",
		}),
	}
}
