/*
server.go - HTTP router and middleware configuration

ROUTER: chi

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (logrus)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters and durations
  5. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/checks/*          Compliance checks
  /api/templates/*       Check templates
  /api/assignees/*       Assignees
  /api/business-areas/*  Business areas
  /api/generate/*        Template-driven generation
  /api/statuses/*        Status refresh
  /api/summary           Dashboard summary
  /api/scenarios/*       Seed data
  /metrics               Prometheus

SECURITY NOTE:
  Authentication is handled by the identity provider in front of the
  service. No authentication middleware runs here.
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/metrics"
)

// RouterConfig carries the router's optional collaborators.
type RouterConfig struct {
	AllowedOrigins []string
	Metrics        *metrics.Collectors
}

// DefaultAllowedOrigins are the dashboard's development origins.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/checks", func(r chi.Router) {
			r.Get("/", h.ListChecks)
			r.Post("/", h.CreateCheck)
			r.Get("/{ref}", h.GetCheck)
			r.Put("/{ref}", h.UpdateCheck)
			r.Delete("/{ref}", h.DeleteCheck)
			r.Post("/{ref}/status", h.SetCheckStatus)
			r.Post("/{ref}/files", h.AttachFile)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Put("/{id}", h.UpdateTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		r.Route("/assignees", func(r chi.Router) {
			r.Get("/", h.ListAssignees)
			r.Post("/", h.CreateAssignee)
			r.Delete("/{name}", h.DeleteAssignee)
		})

		r.Route("/business-areas", func(r chi.Router) {
			r.Get("/", h.ListBusinessAreas)
			r.Post("/", h.CreateBusinessArea)
			r.Delete("/{name}", h.DeleteBusinessArea)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Post("/period", h.GenerateForPeriod)
			r.Post("/year", h.GenerateForYear)
		})

		r.Post("/statuses/refresh", h.RefreshStatuses)
		r.Get("/summary", h.GetSummary)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
