/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the portals

ROUTE GROUPS:
  /api/contracts/*      Contract management and views
  /api/installments/*   Due-date edits
  /api/client/*         Company payment portal
  /api/collaborators/*  Collaborator payment portal
  /api/payments/*       Administrative verification
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; the
  party rules in the domain wrappers still apply to request bodies.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		// Contract routes
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Get("/{id}/progress", h.GetProgress)
			r.Get("/{id}/status", h.GetPaymentStatus)
			r.Post("/{id}/schedule", h.RegenerateSchedule)
		})

		// Installment routes
		r.Route("/installments", func(r chi.Router) {
			r.Put("/{id}/due-date", h.EditDueDate)
		})

		// Company portal
		r.Route("/client", func(r chi.Router) {
			r.Post("/payments", h.SubmitClientPayment)
		})

		// Collaborator portal
		r.Route("/collaborators", func(r chi.Router) {
			r.Post("/{id}/payments", h.SubmitCollaboratorPayment)
		})

		// Administrative verification
		r.Route("/payments", func(r chi.Router) {
			r.Post("/{id}/decide", h.DecidePayment)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
