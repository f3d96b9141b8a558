package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter configures all HTTP routes.
func NewRouter(h *Handler, adminToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/streak", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/status", h.Status)
			r.Post("/result", h.SubmitResult)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(adminToken))
			r.Post("/users/{userID}/reset", h.ResetUser)
		})
	})

	return r
}
