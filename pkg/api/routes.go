package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.metrics.middleware)
	r.Use(s.corsMiddleware())

	r.Get("/", s.handleRoot)

	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, s.cfg.Metrics.Path, promhttp.HandlerFor(
			s.metrics.registry, promhttp.HandlerOpts{},
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/docs", s.handleDocs)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Get("/tests", s.handleListTests)
		r.Get("/bugs", s.handleListBugs)
		r.Get("/test-cases", s.handleListTestCases)
		r.Get("/reports", s.handleListReports)

		// Mutating endpoints.
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.rateLimitMiddleware)
			}

			r.Post("/tests/run", s.handleRunTests)
			r.Delete("/tests", s.handleDeleteAllTests)
			r.Delete("/tests/{id}", s.handleDeleteTest)

			r.Post("/bugs", s.handleCreateBug)
			r.Delete("/bugs/{id}", s.handleDeleteBug)

			r.Post("/test-cases", s.handleCreateTestCase)
			r.Delete("/test-cases/{id}", s.handleDeleteTestCase)

			r.Post("/reports", s.handleCreateReport)
		})
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the server config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	origins := s.cfg.Server.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Reflect the requesting origin so credentials work from any origin.
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
