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

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Suggestion requests
			r.Route("/suggestions", func(r chi.Router) {
				r.Post("/", s.handleGenerateSuggestions)
				r.Get("/{id}", s.handleSuggestionStatus)
				r.Delete("/{id}", s.handleCancelSuggestion)
			})

			// Recommendation cards
			r.Route("/recommendations", func(r chi.Router) {
				r.Get("/{id}", s.handleGetRecommendation)
				r.Post("/{id}/execute", s.handleExecuteRecommendation)
			})

			// Feedback and learned preferences
			r.Post("/feedback", s.handleRecordFeedback)
			r.Get("/feedback", s.handleFeedbackHistory)
			r.Get("/overlay", s.handleGetOverlay)

			// Plan executions
			r.Get("/executions", s.handleListExecutions)

			// Inventory endpoints
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/devices", s.handleListDevices)
				r.Get("/devices/{id}", s.handleGetDevice)
				r.Delete("/devices/{id}", s.handleRemoveDevice)
				r.Get("/services", s.handleListServices)
				r.Get("/services/{id}", s.handleGetService)
				r.Delete("/services/{id}", s.handleRemoveService)
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	devices, services := s.inventory.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"devices":  devices,
		"services": services,
	})
}
