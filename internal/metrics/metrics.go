// Package metrics provides Prometheus instrumentation for the Pantry server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the API server.
// Thread safety is provided by the underlying collector types.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	imageUploads     *prometheus.CounterVec
	tokenValidations *prometheus.CounterVec
}

// New creates the metrics set on a fresh registry, including the
// standard Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantry_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pantry_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_image_uploads_total",
			Help: "Total number of recipe image uploads.",
		}, []string{"result"}),
		tokenValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_token_validations_total",
			Help: "Total number of bearer token validations.",
		}, []string{"source"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.requestsInFlight,
		m.imageUploads,
		m.tokenValidations,
	)

	return m
}

// Handler returns the scrape handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments HTTP requests with count, latency and
// in-flight gauges. Routes are labeled by URL path pattern, not raw
// path, to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordImageUpload counts an image upload attempt by result
// ("success", "rejected", "error").
func (m *Metrics) RecordImageUpload(result string) {
	m.imageUploads.WithLabelValues(result).Inc()
}

// RecordTokenValidation counts a token validation by source
// ("cache", "database").
func (m *Metrics) RecordTokenValidation(source string) {
	m.tokenValidations.WithLabelValues(source).Inc()
}

// routePattern returns the chi route pattern for a request, falling
// back to the raw path when no route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
