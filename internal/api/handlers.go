package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hearthline/hearth-core/internal/auth"
	"github.com/hearthline/hearth-core/internal/capability"
	"github.com/hearthline/hearth-core/internal/engine"
	"github.com/hearthline/hearth-core/internal/feedback"
	"github.com/hearthline/hearth-core/internal/inventory"
	"github.com/hearthline/hearth-core/internal/orchestration"
)

// defaultListLimit caps history and execution listings when the client
// does not specify one.
const defaultListLimit = 50

// generateRequest is the request body for POST /suggestions.
type generateRequest struct {
	// UserID overrides the token subject. Admin only.
	UserID string `json:"user_id,omitempty"`

	// SessionID groups requests from one client session in logs.
	SessionID string `json:"session_id,omitempty"`

	// Hints are optional context hints forwarded to the pipeline
	// (time_of_day, is_weekend, presence overrides).
	Hints capability.Params `json:"hints,omitempty"`

	// Per-run tuning, each falling back to the server defaults.
	Preferences        *engine.Preferences `json:"preferences,omitempty"`
	DiscoveryWidth     int                 `json:"discovery_width,omitempty"`
	MaxRecommendations int                 `json:"max_recommendations,omitempty"`
	IncludeWhatIf      *bool               `json:"include_what_if,omitempty"`
	EnableLLMFallback  *bool               `json:"enable_llm_fallback,omitempty"`
}

// handleGenerateSuggestions runs the suggestion pipeline for the
// authenticated user and returns the finished result. The pipeline is
// bounded by the configured generation budget, so the request completes
// in interactive time.
func (s *Server) handleGenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req generateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	userID := claims.Subject
	if req.UserID != "" {
		if !claims.CanAccessUser(req.UserID) {
			writeForbidden(w, "cannot generate suggestions for another user")
			return
		}
		userID = req.UserID
	}

	result, err := s.engine.GenerateSuggestions(r.Context(), engine.Request{
		UserID:             userID,
		SessionID:          req.SessionID,
		Hints:              req.Hints,
		Preferences:        req.Preferences,
		DiscoveryWidth:     req.DiscoveryWidth,
		MaxRecommendations: req.MaxRecommendations,
		IncludeWhatIf:      req.IncludeWhatIf,
		EnableLLMFallback:  req.EnableLLMFallback,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidRequest):
			writeBadRequest(w, err.Error())
		case errors.Is(err, engine.ErrRequestCancelled):
			writeError(w, http.StatusRequestTimeout, ErrCodeConflict, "suggestion request cancelled")
		default:
			s.logger.Error("suggestion generation failed", "user_id", userID, "error", err)
			writeInternalError(w, "suggestion generation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSuggestionStatus returns the stage of a suggestion request.
func (s *Server) handleSuggestionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := s.engine.Status(id)
	if err != nil {
		writeNotFound(w, "suggestion request not found")
		return
	}

	if !claimsFrom(r).CanAccessUser(status.UserID) {
		writeForbidden(w, "not your suggestion request")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleCancelSuggestion cancels an in-flight suggestion request.
func (s *Server) handleCancelSuggestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := s.engine.Status(id)
	if err != nil {
		writeNotFound(w, "suggestion request not found")
		return
	}
	if !claimsFrom(r).CanAccessUser(status.UserID) {
		writeForbidden(w, "not your suggestion request")
		return
	}

	if err := s.engine.Cancel(id); err != nil {
		writeNotFound(w, "suggestion request not found")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"cancelled": id})
}

// handleGetRecommendation returns a previously issued recommendation card.
func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	card, err := s.engine.Recommendation(id)
	if err != nil {
		writeNotFound(w, "recommendation not found")
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// handleExecuteRecommendation builds and dispatches an execution plan
// for an accepted recommendation.
func (s *Server) handleExecuteRecommendation(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := chi.URLParam(r, "id")

	exec, err := s.engine.ExecuteSuggestion(r.Context(), claims.Subject, id)
	if err != nil {
		var verr *orchestration.ValidationError
		switch {
		case errors.Is(err, engine.ErrRecommendationNotFound):
			writeNotFound(w, "recommendation not found")
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"code":    ErrCodeValidation,
				"message": "plan rejected by safety gates",
				"reasons": verr.Reasons,
			})
		case errors.Is(err, orchestration.ErrPlanNotBuildable):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "recommendation has no executable plan")
		default:
			s.logger.Error("execution dispatch failed", "recommendation_id", id, "error", err)
			writeInternalError(w, "execution dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, exec)
}

// handleRecordFeedback records a user reaction to a recommendation and
// updates the learning overlay.
func (s *Server) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var record capability.FeedbackRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if record.UserID == "" {
		record.UserID = claims.Subject
	} else if !claims.CanAccessUser(record.UserID) {
		writeForbidden(w, "cannot record feedback for another user")
		return
	}

	if err := s.engine.RecordFeedback(r.Context(), &record); err != nil {
		if errors.Is(err, feedback.ErrInvalidFeedback) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		s.logger.Error("feedback record failed", "user_id", record.UserID, "error", err)
		writeInternalError(w, "failed to record feedback")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleFeedbackHistory lists recent feedback records for a user.
func (s *Server) handleFeedbackHistory(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeNotFound(w, "feedback history not available")
		return
	}

	claims := claimsFrom(r)
	userID, ok := s.resolveUserParam(w, r, claims)
	if !ok {
		return
	}

	records, err := s.feedback.History(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.logger.Error("feedback history query failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to list feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// handleGetOverlay returns the learned preference overlay for a user.
func (s *Server) handleGetOverlay(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		writeNotFound(w, "preference overlay not available")
		return
	}

	claims := claimsFrom(r)
	userID, ok := s.resolveUserParam(w, r, claims)
	if !ok {
		return
	}

	overlay, err := s.feedback.Overlay(r.Context(), userID)
	if err != nil {
		s.logger.Error("overlay fetch failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to load overlay")
		return
	}
	if overlay == nil {
		writeNotFound(w, "no learned preferences yet")
		return
	}

	writeJSON(w, http.StatusOK, overlay)
}

// handleListExecutions lists plan executions for a user, newest first.
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.executions == nil {
		writeNotFound(w, "execution history not available")
		return
	}

	claims := claimsFrom(r)
	userID, ok := s.resolveUserParam(w, r, claims)
	if !ok {
		return
	}

	execs, err := s.executions.ListExecutions(r.Context(), userID, queryLimit(r))
	if err != nil {
		s.logger.Error("execution listing failed", "user_id", userID, "error", err)
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": execs})
}

// resolveUserParam returns the user id a listing applies to: the
// ?user_id= override when permitted, otherwise the token subject.
// Writes a 403 and returns false when the override is not allowed.
func (s *Server) resolveUserParam(w http.ResponseWriter, r *http.Request, claims *auth.CustomClaims) (string, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return claims.Subject, true
	}
	if !claims.CanAccessUser(userID) {
		writeForbidden(w, "cannot view another user's records")
		return "", false
	}
	return userID, true
}

// requireAdmin writes a 403 and returns false unless the caller is admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if claimsFrom(r).Role != auth.RoleAdmin {
		writeForbidden(w, "admin role required")
		return false
	}
	return true
}

// queryLimit parses the ?limit= query parameter, falling back to the default.
func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultListLimit
}

// handleListDevices returns all known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.inventory.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("device listing failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.inventory.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to load device")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// handleRemoveDevice removes a device from the inventory. Admin only.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.inventory.RemoveDevice(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to remove device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}

// handleListServices returns all known external services.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.inventory.ListServices(r.Context())
	if err != nil {
		s.logger.Error("service listing failed", "error", err)
		writeInternalError(w, "failed to list services")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services, "count": len(services)})
}

// handleGetService returns one service by id.
func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	service, err := s.inventory.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, inventory.ErrServiceNotFound) {
			writeNotFound(w, "service not found")
			return
		}
		writeInternalError(w, "failed to load service")
		return
	}
	writeJSON(w, http.StatusOK, service)
}

// handleRemoveService removes a service from the inventory. Admin only.
func (s *Server) handleRemoveService(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.inventory.RemoveService(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrServiceNotFound) {
			writeNotFound(w, "service not found")
			return
		}
		writeInternalError(w, "failed to remove service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": id})
}
