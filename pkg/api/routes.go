package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			if s.cfg.RateLimit.Enabled {
				r.Use(s.rateLimitMiddleware(s.cfg.RateLimit.LoginPerMinute))
			}

			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/me", s.handleMe)
			})
		})

		// Region geometry is public read-only data.
		r.Route("/regions", func(r chi.Router) {
			r.Get("/", s.handleListRegions)
			r.Get("/bounds", s.handleRegionBounds)
			r.Get("/irregular", s.handleIrregularRegions)
			r.Get("/{name}/geometry", s.handleRegionGeometry)
			r.Put("/selection", s.handleSelectRegion)
		})

		r.Get("/catalog", s.handleCatalog)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/stats", s.handleStats)
			r.Get("/export.csv", s.handleExportCSV)

			// Mutations require an authenticated delegate.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateReport)
				r.Post("/{id}/resolve", s.handleResolveReport)
				r.Delete("/{id}", s.handleDeleteReport)
			})
		})
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the server config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	origins := s.cfg.CORSOrigins

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
