package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the engine API. The metrics registry may be nil
// when no collectors are registered.
func NewRouter(handler *EngineHandler, registry *prometheus.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/api/health", handler.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/preview", handler.Preview)
		r.Post("/process", handler.Process)
		r.Post("/synonyms", handler.Learn)
		r.Post("/connections/{name}/test", handler.TestConnection)
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}
