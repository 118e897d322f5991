package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the query service and the poller.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   prometheus.Counter
	errorsTotal     prometheus.Counter
	requestDuration prometheus.Histogram

	queriesTotal       *prometheus.CounterVec
	syntheticFallbacks prometheus.Counter

	cyclesTotal          prometheus.Counter
	tracksIngestedTotal  prometheus.Counter
	emptyCyclesTotal     prometheus.Counter
	storageFailuresTotal prometheus.Counter
	fetchFailuresTotal   *prometheus.CounterVec
	cycleDuration        prometheus.Histogram
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nowplaying_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowplaying_playlist_queries_total",
			Help: "Playlist queries served, by kind (list or search)",
		}, []string{"kind"}),
		syntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_synthetic_fallbacks_total",
			Help: "Queries answered from the synthetic dataset because the store failed",
		}),
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_poll_cycles_total",
			Help: "Total number of ingestion cycles run",
		}),
		tracksIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_tracks_ingested_total",
			Help: "Playlist entries written to the store",
		}),
		emptyCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_empty_cycles_total",
			Help: "Cycles that found no usable metadata",
		}),
		storageFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplaying_storage_failures_total",
			Help: "Cycles that failed to write their entry",
		}),
		fetchFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowplaying_fetch_failures_total",
			Help: "Failed stream fetches, by target (manifest or segment)",
		}, []string{"target"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nowplaying_poll_cycle_duration_seconds",
			Help:    "Wall time of one ingestion cycle",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.requestDuration,
		m.queriesTotal,
		m.syntheticFallbacks,
		m.cyclesTotal,
		m.tracksIngestedTotal,
		m.emptyCyclesTotal,
		m.storageFailuresTotal,
		m.fetchFailuresTotal,
		m.cycleDuration,
	)
	return m
}

// ObserveRequest records one HTTP response.
func (m *Metrics) ObserveRequest(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
	m.requestDuration.Observe(d.Seconds())
	if status >= 400 {
		m.errorsTotal.Inc()
	}
}

// IncQueries counts a served playlist query of the given kind.
func (m *Metrics) IncQueries(kind string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(kind).Inc()
}

// IncSyntheticFallbacks counts a query answered from synthetic data.
func (m *Metrics) IncSyntheticFallbacks() {
	if m == nil {
		return
	}
	m.syntheticFallbacks.Inc()
}

// ObserveCycle records the outcome of one ingestion cycle.
// ingested is true when an entry was written; failed when the write errored.
func (m *Metrics) ObserveCycle(d time.Duration, ingested, failed bool) {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
	m.cycleDuration.Observe(d.Seconds())
	switch {
	case failed:
		m.storageFailuresTotal.Inc()
	case ingested:
		m.tracksIngestedTotal.Inc()
	default:
		m.emptyCyclesTotal.Inc()
	}
}

// IncFetchFailures counts a failed manifest or segment fetch.
func (m *Metrics) IncFetchFailures(target string) {
	if m == nil {
		return
	}
	m.fetchFailuresTotal.WithLabelValues(target).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape; it may be nil.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}
