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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Get("/status", s.handleStatus)
			r.Get("/sensors", s.handleSensors)

			// Settings namespaces
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleGetTargets)
				r.Patch("/", s.handlePatchTargets)
				r.Get("/manual", s.handleGetManual)
				r.Patch("/manual", s.handlePatchManual)
			})

			// Actuator channels
			r.Route("/channels/{channel}", func(r chi.Router) {
				r.Get("/", s.handleGetChannel)
				r.Put("/", s.handleSetChannel)
				r.Delete("/", s.handleClearChannel)
				r.Get("/history", s.handleChannelHistory)
			})
			r.Get("/history", s.handleHistory)

			r.Put("/mode", s.handleSetMode)
			r.Post("/watering", s.handleTriggerWatering)

			r.Get("/identity", s.handleGetIdentity)
			r.Patch("/identity", s.handlePatchIdentity)

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
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
