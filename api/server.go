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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/shifts/*           Shift catalog and week generation
  /api/bookings/*         Booking lifecycle
  /api/users/*            Per-user weekly hour budgets
  /api/hour-exceptions    Weekly cap overrides
  /api/vacations/*        Leave filing and approval
  /api/requests/*         Cancel and swap workflow
  /api/audit              Audit trail
  /api/health             Liveness probe

SECURITY NOTE:
  Identity arrives via X-User-* headers set by the proxy in front of
  this service. There is no authentication middleware here.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id", "X-User-Name", "X-User-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		// Shift catalog routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Post("/generate", h.GenerateWeek)
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)
		})

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Put("/{id}/time", h.SetBookingTime)
			r.Delete("/{id}", h.DeleteBooking)
		})

		// Hour budget routes
		r.Get("/users/{id}/hours", h.GetWeekBudget)
		r.Route("/hour-exceptions", func(r chi.Router) {
			r.Get("/", h.ListHourExceptions)
			r.Put("/", h.SetHourException)
			r.Delete("/", h.RemoveHourException)
		})

		// Leave routes
		r.Route("/vacations", func(r chi.Router) {
			r.Get("/", h.ListVacations)
			r.Post("/", h.FileVacation)
			r.Post("/{id}/approve", h.ApproveVacation)
			r.Post("/{id}/reject", h.RejectVacation)
			r.Post("/{id}/request-deletion", h.RequestVacationDeletion)
			r.Post("/{id}/approve-deletion", h.ApproveVacationDeletion)
			r.Post("/{id}/reject-deletion", h.RejectVacationDeletion)
			r.Delete("/{id}", h.DeleteVacation)
		})

		// Request workflow routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/cancel", h.OpenCancelRequest)
			r.Post("/swap", h.OpenSwapRequest)
			r.Get("/pending", h.ListPendingRequests)
			r.Get("/mine", h.ListMyRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		// Audit routes
		r.Get("/audit", h.ListAudit)

		// Demo seed
		r.Post("/seed", h.SeedDemo)
	})

	return r
}
