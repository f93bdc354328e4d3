package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdsa-team/pdsa-backend/internal/chatlog"
)

// LogStatus is the chat log summary returned by /api/logs/status and pushed
// over /api/logs/stream.
type LogStatus struct {
	Success      bool   `json:"success"`
	LogPath      string `json:"logPath"`
	LogCount     int    `json:"logCount"`
	LogSize      int64  `json:"logSize"`
	LogSizeHuman string `json:"logSizeHuman"`
	LastUpdate   string `json:"lastUpdate"`
}

// NewLogStatus converts log statistics to the response shape.
func NewLogStatus(s chatlog.Stats) LogStatus {
	return LogStatus{
		Success:      true,
		LogPath:      s.Path,
		LogCount:     s.Count,
		LogSize:      s.SizeBytes,
		LogSizeHuman: s.SizeHuman,
		LastUpdate:   s.LastUpdate,
	}
}

// StatsSource reports chat log statistics.
type StatsSource interface {
	Stats() chatlog.Stats
}

// LogsHandler serves chat log status.
type LogsHandler struct {
	log StatsSource
}

// NewLogsHandler creates a logs handler.
func NewLogsHandler(log StatsSource) *LogsHandler {
	return &LogsHandler{log: log}
}

// Status handles GET /api/logs/status.
func (h *LogsHandler) Status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, NewLogStatus(h.log.Stats()))
}

// RegisterRoutes registers log routes.
func (h *LogsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/logs/status", h.Status)
}
