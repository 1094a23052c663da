/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

SECURITY NOTE:
  No authentication middleware. Auth/session handling is owned by the
  host application in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Member routes
		r.Route("/members/{id}", func(r chi.Router) {
			r.Get("/eligibility", h.GetEligibility)
			r.Get("/cards", h.GetCardSummary)
		})

		// Suspension routes
		r.Route("/suspensions", func(r chi.Router) {
			r.Get("/", h.ListSuspensions)
			r.Post("/", h.CreateSuspension)
			r.Get("/orphans", h.ListOrphans)
			r.Post("/orphans/cleanup", h.CleanupOrphans)
			r.Get("/{id}", h.GetSuspension)
			r.Post("/{id}/serve", h.MarkServed)
			r.Post("/{id}/reduce", h.ReduceByOne)
			r.Delete("/{id}", h.DeleteSuspension)
		})

		// Match routes
		r.Route("/matches", func(r chi.Router) {
			r.Get("/{id}/checkin-lock", h.GetCheckInLock)
			r.Delete("/{matchID}/cards/{cardID}", h.RetractCard)
		})
	})

	return r
}
