package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Account endpoints (no auth required)
		r.Post("/auth/register", s.handleAuthRegister)
		r.Post("/auth/login", s.handleAuthLogin)

		// Device-reporting endpoints. Devices authenticate by carrying
		// their token (or raw id) in the request body, not a header.
		r.Route("/monitor", func(r chi.Router) {
			r.Post("/register", s.handleMonitorRegister)
			r.Post("/connections", s.handleMonitorConnections)
			r.Post("/meter", s.handleMonitorMeter)
			r.Post("/status", s.handleMonitorStatus)
		})

		// Dashboard endpoints (bearer token required)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/dashboard/users", s.handleDashboardUsers)
			r.Get("/dashboard/user/{id}", s.handleDashboardUser)
			r.Get("/dashboard/activity", s.handleDashboardActivity)
		})

		// WebSocket (token validated in handler from query parameter,
		// since browsers cannot set headers on WebSocket upgrades)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
