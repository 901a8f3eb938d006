package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the compute service
type Metrics struct {
	// Computation metrics
	computationsTotal *prometheus.CounterVec
	computeDuration   *prometheus.HistogramVec
	mismatchesTotal   prometheus.Counter

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Admission metrics
	rateLimitedTotal prometheus.Counter

	// Configuration reload metrics
	configReloads *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance with all service metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		computationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bezout_computations_total",
				Help: "Total number of extended gcd computations by strategy and status",
			},
			[]string{"strategy", "status"},
		),

		computeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bezout_compute_duration_seconds",
				Help:    "Computation latency in seconds",
				Buckets: []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3},
			},
			[]string{"strategy"},
		),

		mismatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bezout_variant_mismatches_total",
				Help: "Total number of computations where the iterative and recursive variants disagreed",
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bezout_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bezout_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bezout_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bezout_config_reloads_total",
				Help: "Total number of configuration reload attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	// Register all metrics
	registry.MustRegister(
		m.computationsTotal,
		m.computeDuration,
		m.mismatchesTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.rateLimitedTotal,
		m.configReloads,
	)

	return m
}

// RecordComputation records metrics for one evaluation
func (m *Metrics) RecordComputation(strategy, status string, duration time.Duration) {
	m.computationsTotal.WithLabelValues(strategy, status).Inc()
	m.computeDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordMismatch records a disagreement between the two variants
func (m *Metrics) RecordMismatch() {
	m.mismatchesTotal.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

// RecordConfigReload records a configuration reload attempt
func (m *Metrics) RecordConfigReload(status string) {
	m.configReloads.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware creates HTTP middleware that records request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := getEndpointName(r.URL.Path)
		statusCode := strconv.Itoa(wrapped.statusCode)

		m.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// getEndpointName extracts a normalized endpoint name from the path
func getEndpointName(path string) string {
	switch path {
	case "/healthz":
		return "health"
	case "/metrics":
		return "metrics"
	case "/v1/extgcd":
		return "extgcd"
	default:
		return "unknown"
	}
}
