// Package metrics holds the Prometheus collectors of the compliance tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors is one registered set of metrics. Each server builds its own so
// tests can use a fresh registry.
type Collectors struct {
	Registry *prometheus.Registry

	checksGenerated *prometheus.CounterVec
	checksSkipped   *prometheus.CounterVec
	generationRuns  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		Registry: reg,
		checksGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_checks_generated_total",
			Help: "Compliance checks created by template generation",
		}, []string{"kind"}),
		checksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_checks_skipped_total",
			Help: "Generation candidates skipped as duplicates",
		}, []string{"kind"}),
		generationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_generation_runs_total",
			Help: "Generation runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compliance_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		c.checksGenerated, c.checksSkipped, c.generationRuns,
		c.httpRequests, c.httpDuration,
	)
	return c
}

// ObserveGeneration implements compliance.Observer.
func (c *Collectors) ObserveGeneration(kind string, created, skipped int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.generationRuns.WithLabelValues(kind, outcome).Inc()
	c.checksGenerated.WithLabelValues(kind).Add(float64(created))
	c.checksSkipped.WithLabelValues(kind).Add(float64(skipped))
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// Middleware records request counts and durations labelled by chi route
// pattern, which keeps check refs and template ids out of the label set.
func (c *Collectors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		// Raw paths would give every unknown URL its own series.
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
