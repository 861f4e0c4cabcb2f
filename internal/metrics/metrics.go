package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors shared across the server.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	LogsIngested       prometheus.Counter
	IngestRejected     *prometheus.CounterVec
	EstimatesPublished prometheus.Counter
	SimulationsRun     prometheus.Counter
	StateCacheHits     prometheus.Counter
	StateCacheMisses   prometheus.Counter
	AlertsTriggered    prometheus.Counter
	AlertsCleared      prometheus.Counter
	HistoryFlushRows   prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "migraine_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "migraine_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		LogsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_logs_ingested_total",
			Help: "Daily logs accepted and folded into a latent state.",
		}),
		IngestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "migraine_logs_rejected_total",
			Help: "Daily logs rejected, by reason.",
		}, []string{"reason"}),
		EstimatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_estimates_published_total",
			Help: "Estimate events published to the queue.",
		}),
		SimulationsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_simulations_total",
			Help: "Trajectory simulations run, including intervention rankings.",
		}),
		StateCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_state_cache_hits_total",
			Help: "Latent state reads served from Redis.",
		}),
		StateCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_state_cache_misses_total",
			Help: "Latent state reads that fell through to Postgres.",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_alerts_triggered_total",
			Help: "Alert state machines that entered ACTIVE.",
		}),
		AlertsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "migraine_alerts_cleared_total",
			Help: "Alert state machines that returned to CLEAR.",
		}),
		HistoryFlushRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "migraine_history_flush_rows",
			Help:    "Rows written to risk history per batch flush.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.LogsIngested,
		m.IngestRejected,
		m.EstimatesPublished,
		m.SimulationsRun,
		m.StateCacheHits,
		m.StateCacheMisses,
		m.AlertsTriggered,
		m.AlertsCleared,
		m.HistoryFlushRows,
	)

	return m
}

// RegisterActiveHandles exposes the engine's live handle count as a
// gauge driven by the supplied callback.
func (m *Metrics) RegisterActiveHandles(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "migraine_engine_active_handles",
		Help: "Per-user engine handles currently resident.",
	}, count))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
