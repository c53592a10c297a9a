package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all content API routes using chi router.
// Reads are open; mutations require the bearer token when one is
// configured.
func RegisterRoutes(mux *http.ServeMux, handlers *Handlers, authToken string) {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", handlers.handleHealth)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", handlers.handleListPosts)
		r.Get("/{id}", handlers.handleGetPost)
		r.Post("/{id}/like", handlers.handleToggleLike)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(authToken))
			r.Post("/", handlers.handleCreatePost)
			r.Patch("/{id}", handlers.handleUpdatePost)
			r.Delete("/{id}", handlers.handleDeletePost)
			r.Put("/{id}/views", handlers.handleOverrideViews)
		})
	})

	mux.Handle("/", r)

	log.Info().Msg("Content API enabled at /posts")
}
