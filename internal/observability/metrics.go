// Package observability exposes Prometheus instruments for the HTTP surface,
// the query cache and schema reloads.
package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Reload outcomes.
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Query metrics
	SearchesTotal         prometheus.Counter
	QueryCacheHitsTotal   prometheus.Counter
	QueryCacheMissesTotal prometheus.Counter

	// Schema metrics
	SchemaReloadsTotal *prometheus.CounterVec
	SchemaProperties   prometheus.Gauge
	SchemaVisuals      prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeschema_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "themeschema_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		SearchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "themeschema_searches_total",
			Help: "Total number of property searches.",
		}),
		QueryCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "themeschema_query_cache_hits_total",
			Help: "Total query cache hits.",
		}),
		QueryCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "themeschema_query_cache_misses_total",
			Help: "Total query cache misses.",
		}),

		SchemaReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "themeschema_schema_reloads_total",
			Help: "Total schema reloads by outcome.",
		}, []string{"status"}),
		SchemaProperties: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "themeschema_schema_properties",
			Help: "Number of properties in the live snapshot.",
		}),
		SchemaVisuals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "themeschema_schema_visuals",
			Help: "Number of visual types in the live snapshot.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchesTotal,
		m.QueryCacheHitsTotal,
		m.QueryCacheMissesTotal,
		m.SchemaReloadsTotal,
		m.SchemaProperties,
		m.SchemaVisuals,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// ObserveSearch records one property search and whether the cache served it.
func (m *Metrics) ObserveSearch(cacheHit bool) {
	m.SearchesTotal.Inc()
	if cacheHit {
		m.QueryCacheHitsTotal.Inc()
	} else {
		m.QueryCacheMissesTotal.Inc()
	}
}

// RecordReload records a schema reload outcome.
func (m *Metrics) RecordReload(status string) {
	m.SchemaReloadsTotal.WithLabelValues(status).Inc()
}

// SetSchemaSize publishes the size of the live snapshot.
func (m *Metrics) SetSchemaSize(properties, visuals int) {
	m.SchemaProperties.Set(float64(properties))
	m.SchemaVisuals.Set(float64(visuals))
}

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler serving g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.ReplaceAll(pattern, "/*/", "/")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// statusWriter captures the response status.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush lets streaming handlers behind the middleware flush.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
