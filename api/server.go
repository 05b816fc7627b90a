/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. httplog:    Structured request logging via slog
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Heartbeat:  /health liveness probe

SECURITY NOTE:
  No authentication middleware. The service is designed to sit behind a
  trusted gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	if logger != nil {
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Pay computation
		r.Route("/pay", func(r chi.Router) {
			r.Post("/compute", h.ComputeShiftPay)
		})

		// Stateless tax calculation
		r.Route("/tax", func(r chi.Router) {
			r.Post("/calculate", h.CalculateTax)
		})

		// Pay periods and the persisting calculation
		r.Route("/pay-periods", func(r chi.Router) {
			r.Post("/", h.CreatePayPeriod)
			r.Get("/{id}", h.GetPayPeriod)
			r.Post("/{id}/tax", h.CalculatePeriodTax)
		})

		// Year-to-date ledger
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/ytd/{year}", h.GetYearToDate)
		})

		// Reference data
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/{id}", h.GetRateProfile)
		})
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})
	})

	return r
}
