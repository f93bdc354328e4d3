package agent

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pdsa-team/pdsa-backend/internal/api"
)

// Handler handles chat HTTP requests.
type Handler struct {
	agent       *Service
	maxBodySize int64
}

// NewHandler creates a chat handler. A non-positive maxBodySize selects the
// api package default.
func NewHandler(svc *Service, maxBodySize int64) *Handler {
	return &Handler{agent: svc, maxBodySize: maxBodySize}
}

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := api.DecodeJSON(w, r, h.maxBodySize, &req); err != nil {
		api.Error(w, api.DecodeStatus(err), "missing required parameter: message")
		return
	}
	if req.Message == nil {
		api.Error(w, http.StatusBadRequest, "missing required parameter: message")
		return
	}
	if strings.TrimSpace(*req.Message) == "" {
		api.Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	slog.Info("Chat request",
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(*req.Message),
		"history_turns", len(req.History),
	)

	reply := h.agent.Relay(r.Context(), *req.Message, req.History)
	api.JSON(w, http.StatusOK, ChatResponse{Success: true, Reply: reply})
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
}
