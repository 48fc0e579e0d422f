package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fotobox/facesearch/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	searchHandler := handlers.NewSearchHandler(s.service, s.logger)

	// Health and status (no auth, no pipeline work)
	s.router.Get("/", handlers.Status)
	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Method("GET", "/metrics", promhttp.Handler())

	// The photobooth frontend posts selfies here.
	s.router.Post("/face-search", searchHandler.FaceSearch)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/face-search", searchHandler.FaceSearch)
		r.Post("/similar", searchHandler.Similar)
	})
}
