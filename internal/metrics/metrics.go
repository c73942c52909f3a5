package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// RequestLatency tracks HTTP request latency by endpoint and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests served by the dashboard API
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// ErrorCounter counts errors by type and endpoint
	ErrorCounter *prometheus.CounterVec
	// GSCRequestsTotal counts outbound Search Console API calls by endpoint
	// and status
	GSCRequestsTotal *prometheus.CounterVec
	// TokenState tracks the current credential state (0 absent, 1 stale, 2 fresh)
	TokenState prometheus.Gauge
	// CacheHitsTotal counts report cache hits and misses
	CacheHitsTotal *prometheus.CounterVec
	// InspectionsTotal counts URL inspections by outcome
	InspectionsTotal *prometheus.CounterVec
	// AlertsSentTotal counts traffic alerts delivered
	AlertsSentTotal prometheus.Counter
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors by type and endpoint",
			},
			[]string{"type", "endpoint"},
		),
		GSCRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gsc_requests_total",
				Help:      "Outbound Search Console API requests",
			},
			[]string{"endpoint", "status"},
		),
		TokenState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "token_state",
				Help:      "Credential state: 0 absent, 1 stale-but-usable, 2 fresh",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_cache_total",
				Help:      "Report cache lookups by result",
			},
			[]string{"result"},
		),
		InspectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "url_inspections_total",
				Help:      "URL inspections by outcome",
			},
			[]string{"outcome"},
		),
		AlertsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_sent_total",
				Help:      "Traffic alerts delivered",
			},
		),
	}

	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.ErrorCounter,
		m.GSCRequestsTotal,
		m.TokenState,
		m.CacheHitsTotal,
		m.InspectionsTotal,
		m.AlertsSentTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequestLatency records the latency of an HTTP request.
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, seconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(seconds)
}

// RecordHTTPRequest increments the HTTP request counter.
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments the in-flight gauge.
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight gauge.
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(errType, endpoint string) {
	m.ErrorCounter.WithLabelValues(errType, endpoint).Inc()
}

// RecordGSCRequest counts an outbound Search Console API call.
func (m *Metrics) RecordGSCRequest(endpoint, status string) {
	m.GSCRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// SetTokenState records the current credential state.
func (m *Metrics) SetTokenState(state float64) {
	m.TokenState.Set(state)
}

// RecordCacheLookup counts a report cache hit or miss.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheHitsTotal.WithLabelValues(result).Inc()
}

// RecordInspection counts a URL inspection outcome.
func (m *Metrics) RecordInspection(outcome string) {
	m.InspectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordAlertSent counts a delivered traffic alert.
func (m *Metrics) RecordAlertSent() {
	m.AlertsSentTotal.Inc()
}
