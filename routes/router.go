// Package routes exposes the job pipeline over HTTP.
package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"fileconv/job"
	"fileconv/limiter"
	"fileconv/metrics"
)

// HealthChecker reports whether the object store is reachable
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type Handler struct {
	jobs     *job.Service
	health   HealthChecker
	validate *validator.Validate
}

func NewHandler(jobs *job.Service, health HealthChecker) *Handler {
	validate := validator.New()
	// report json names in validation errors
	validate.RegisterTagNameFunc(jsonFieldName)
	return &Handler{jobs: jobs, health: health, validate: validate}
}

// RouterConfig holds the cross-cutting settings of the HTTP surface
type RouterConfig struct {
	CORSOrigins   []string
	Limiter       limiter.Limiter // nil disables rate limiting
	RatePerMinute int             // only used in the 429 message
}

func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(cfg.CORSOrigins))

	limited := func(r chi.Router) {}
	if cfg.Limiter != nil {
		limited = func(r chi.Router) {
			r.Use(rateLimit(cfg.Limiter, cfg.RatePerMinute))
		}
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			limited(r)
			r.Post("/upload", h.Upload)
			r.Post("/convert", h.Convert)
		})
		r.Get("/download/{job_id}", h.Download)
		r.Get("/health", h.Health)
		r.Get("/version", h.Version)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
