package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the collectors shared by the upstream clients and caches
type Metrics struct {
	ExternalAPIRequests        *prometheus.CounterVec
	ExternalAPIRequestDuration *prometheus.HistogramVec
	CacheRequests              *prometheus.CounterVec
	SessionUpdates             *prometheus.CounterVec
	HTTPRequests               *prometheus.CounterVec
	HTTPRequestDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them on registry
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExternalAPIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_requests_total",
				Help: "Total number of external API requests",
			},
			[]string{"vendor", "method", "status"},
		),
		ExternalAPIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_request_duration_seconds",
				Help:    "Duration of external API requests",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"vendor", "method"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_requests_total",
				Help: "Total number of cache requests",
			},
			[]string{"function", "status"},
		),
		SessionUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_updates_total",
				Help: "Total number of session updates",
			},
			[]string{"type", "reason"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of served HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.ExternalAPIRequests,
		m.ExternalAPIRequestDuration,
		m.CacheRequests,
		m.SessionUpdates,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)

	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors attached
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// ObserveRequest records one finished upstream request.
// status is the HTTP status code, or 0 when no response was received.
func (m *Metrics) ObserveRequest(vendor, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.ExternalAPIRequests.WithLabelValues(vendor, method, label).Inc()
	m.ExternalAPIRequestDuration.WithLabelValues(vendor, method).Observe(elapsed.Seconds())
}

// CacheRequest counts a cache lookup outcome (hit, miss, stale, error)
func (m *Metrics) CacheRequest(function, status string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(function, status).Inc()
}

// SessionUpdate counts a login or refresh and why it happened
func (m *Metrics) SessionUpdate(kind, reason string) {
	if m == nil {
		return
	}
	m.SessionUpdates.WithLabelValues(kind, reason).Inc()
}

// ObserveHTTP records one served request under its route pattern
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
