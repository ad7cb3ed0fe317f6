// Package api implements the theme schema REST API using chi.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/themeschema/internal/observability"
	"github.com/starford/themeschema/internal/query"
)

// Deps are the collaborators of the HTTP surface. Logger, Events, Metrics
// and Gatherer are optional.
type Deps struct {
	API      *query.API
	Logger   *slog.Logger
	Events   http.Handler
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	// MaxAge is the Cache-Control max-age in seconds for API reads.
	MaxAge int
}

// NewRouter creates the root chi router: middleware, health checks, metrics
// and every API route under /api.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.API, d.Logger)
	maxAge := d.MaxAge
	if maxAge <= 0 {
		maxAge = 60
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))
	if d.Metrics != nil {
		r.Use(d.Metrics.MetricsMiddleware)
	}

	r.Get("/health", h.Live)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", observability.Handler(d.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(SnapshotCache(d.API, maxAge))

			// Properties.
			r.Get("/properties", h.SearchProperties)
			r.Get("/properties/common", h.CommonProperties)
			r.Get("/properties/by-path", h.PropertyByPath)
			r.Get("/properties/{id}", h.GetProperty)
			r.Get("/properties/{id}/related", h.RelatedProperties)
			r.Get("/properties/{id}/examples", h.PropertyExamples)

			// Visuals.
			r.Get("/visuals", h.SearchVisuals)
			r.Get("/visuals/{type}", h.GetVisual)
			r.Get("/visuals/{type}/structure", h.VisualStructure)

			// Aggregates.
			r.Get("/stats", h.Stats)
			r.Get("/relationships", h.Relationships)
		})

		r.Post("/query", h.Query)
	})

	return r
}
