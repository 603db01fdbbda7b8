package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes returns the HTTP surface. Every endpoint lives under /api;
// generation endpoints are rate limited when a limiter is configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)

		r.Route("/upload", func(r chi.Router) {
			r.Post("/{format}", h.HandleUpload)
			r.Get("/user/{userId}", h.HandleUserBooks)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.With(h.rateLimit).Post("/reading-dna", h.HandleGenerateProfile)
			r.Get("/reading-dna/{userId}", h.HandleGetProfile)
			r.With(h.rateLimit).Post("/book-connections", h.HandleGenerateConnections)
			r.Get("/book-connections/{userId}", h.HandleGetConnections)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.With(h.rateLimit).Post("/generate", h.HandleGenerateRecommendations)
			r.Get("/{userId}", h.HandleGetRecommendations)
		})

		r.Route("/evaluation", func(r chi.Router) {
			r.With(h.rateLimit).Post("/evaluate", h.HandleEvaluate)
		})

		r.Route("/preloaded", func(r chi.Router) {
			r.Get("/books", h.HandlePreloadedBooks)
			r.Get("/reading-dna", h.HandlePreloadedProfile)
			r.Get("/book-connections", h.HandlePreloadedConnections)
			r.Get("/search", h.HandleSearch)
		})
	})

	if h.staticDir != "" {
		r.Get("/*", h.HandleStatic)
	}

	return r
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
