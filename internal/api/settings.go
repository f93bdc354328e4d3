package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdsa-team/pdsa-backend/internal/retention"
	"github.com/pdsa-team/pdsa-backend/internal/settings"
)

// nextRunLayout formats the scheduled cleanup time.
const nextRunLayout = "2006-01-02 15:04:05"

// CleanupSettingsResponse is returned by GET /api/settings/log-cleanup.
type CleanupSettingsResponse struct {
	Success     bool   `json:"success"`
	Strategy    string `json:"strategy"`
	CleanupTime string `json:"cleanupTime"`
	NextRun     string `json:"nextRun,omitempty"`
}

// CleanupUpdateRequest is the body of POST /api/settings/log-cleanup.
type CleanupUpdateRequest struct {
	Strategy    string `json:"strategy"`
	CleanupTime string `json:"cleanupTime"`
}

// CleanupUpdateResponse is returned by a successful policy update.
type CleanupUpdateResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Strategy    string `json:"strategy"`
	CleanupTime string `json:"cleanupTime"`
}

// SettingsHandler serves the log retention settings.
type SettingsHandler struct {
	controller  *retention.Controller
	maxBodySize int64
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(controller *retention.Controller, maxBodySize int64) *SettingsHandler {
	return &SettingsHandler{controller: controller, maxBodySize: maxBodySize}
}

// GetCleanup handles GET /api/settings/log-cleanup.
func (h *SettingsHandler) GetCleanup(w http.ResponseWriter, r *http.Request) {
	policy := h.controller.Current().LogCleanup
	resp := CleanupSettingsResponse{
		Success:     true,
		Strategy:    string(policy.Strategy),
		CleanupTime: policy.CleanupTime,
	}
	if snap := h.controller.Schedule(); !snap.NextRun.IsZero() {
		resp.NextRun = snap.NextRun.Format(nextRunLayout)
	}
	JSON(w, http.StatusOK, resp)
}

// UpdateCleanup handles POST /api/settings/log-cleanup.
func (h *SettingsHandler) UpdateCleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupUpdateRequest
	if err := DecodeJSON(w, r, h.maxBodySize, &req); err != nil {
		if errors.Is(err, ErrEmptyBody) {
			Error(w, http.StatusBadRequest, "missing request body")
			return
		}
		Error(w, DecodeStatus(err), "invalid request body")
		return
	}

	res, err := h.controller.Update(req.Strategy, req.CleanupTime)
	switch {
	case errors.Is(err, settings.ErrInvalidStrategy):
		Error(w, http.StatusBadRequest, "invalid strategy: must be one of never, daily, weekly, immediate")
		return
	case errors.Is(err, settings.ErrInvalidCleanupTime):
		Error(w, http.StatusBadRequest, "invalid cleanupTime: expected HH:MM")
		return
	case err != nil:
		slog.Error("Failed to update log cleanup settings", "error", err)
		Error(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	message := "Log cleanup settings saved"
	if res.Requested.Strategy == settings.StrategyImmediate {
		message = "Chat log cleared"
		if !res.Truncated {
			message = "Settings saved, but clearing the chat log failed"
		}
	}
	slog.Info("Log cleanup settings updated",
		"requested", res.Requested.Strategy,
		"persisted", res.Persisted.Strategy,
		"cleanup_time", res.Persisted.CleanupTime,
		"truncated", res.Truncated,
	)

	JSON(w, http.StatusOK, CleanupUpdateResponse{
		Success:     true,
		Message:     message,
		Strategy:    string(res.Requested.Strategy),
		CleanupTime: res.Requested.CleanupTime,
	})
}

// RegisterRoutes registers settings routes.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/log-cleanup", h.GetCleanup)
		r.Post("/log-cleanup", h.UpdateCleanup)
	})
}
