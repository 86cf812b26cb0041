// Package observability holds the Prometheus metrics collector for the
// analytics engine and its HTTP surface.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each
// collector owns its registry so tests can construct instances freely
// without duplicate-registration panics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Ingestion metrics
	SignalsIngested *prometheus.CounterVec
	SignalsRejected *prometheus.CounterVec
	SignalLogErrors prometheus.Counter

	// Query metrics
	QueriesExecuted *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec

	// Scorer cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SignalsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_ingested_total",
				Help:      "Signals accepted into the journey graph, by signal type",
			},
			[]string{"type"},
		),
		SignalsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_rejected_total",
				Help:      "Signals rejected at ingestion, by signal type",
			},
			[]string{"type"},
		),
		SignalLogErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signal_log_errors_total",
				Help:      "Failed writes to the durable signal log",
			},
		),
		QueriesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_executed_total",
				Help:      "Analytic queries executed, by query type",
			},
			[]string{"type"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Analytic query execution time in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"type"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "score_cache_hits_total",
				Help:      "Scorer cache hits, by statistic",
			},
			[]string{"stat"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "score_cache_misses_total",
				Help:      "Scorer cache misses, by statistic",
			},
			[]string{"stat"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SignalsIngested,
		c.SignalsRejected,
		c.SignalLogErrors,
		c.QueriesExecuted,
		c.QueryDuration,
		c.CacheHits,
		c.CacheMisses,
	)
	return c
}

// Handler returns the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordQuery records one query execution.
func (c *Collector) RecordQuery(queryType string, duration time.Duration) {
	c.QueriesExecuted.WithLabelValues(queryType).Inc()
	c.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// CacheHooks adapts the collector to the scorer's cache observation
// interface.
type CacheHooks struct {
	Collector *Collector
}

func (h CacheHooks) CacheHit(stat string) {
	h.Collector.CacheHits.WithLabelValues(stat).Inc()
}

func (h CacheHooks) CacheMiss(stat string) {
	h.Collector.CacheMisses.WithLabelValues(stat).Inc()
}
