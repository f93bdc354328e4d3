package logstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pdsa-team/pdsa-backend/internal/api"
)

// DefaultInterval is how often status is pushed when none is configured.
const DefaultInterval = 5 * time.Second

const writeTimeout = 5 * time.Second

// WebSocketHandler streams chat log status to a WebSocket client: once on
// connect and then every interval until the client goes away.
type WebSocketHandler struct {
	log            api.StatsSource
	sm             *SessionManager
	interval       time.Duration
	originPatterns []string
}

// NewWebSocketHandler creates a stream handler. originPatterns are host
// patterns accepted in the Origin header; "*" accepts any origin.
func NewWebSocketHandler(log api.StatsSource, sm *SessionManager, interval time.Duration, originPatterns []string) *WebSocketHandler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &WebSocketHandler{
		log:            log,
		sm:             sm,
		interval:       interval,
		originPatterns: originPatterns,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	slog.Info("Log stream connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID)

	// The client never sends anything; CloseRead handles control frames and
	// cancels ctx once the peer closes.
	ctx := ws.CloseRead(r.Context())

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.writeStatus(ctx, ws); err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) == -1 {
				slog.Debug("Log stream write error", "error", err, "session_id", sessionID)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *WebSocketHandler) writeStatus(ctx context.Context, ws *websocket.Conn) error {
	data, err := json.Marshal(api.NewLogStatus(h.log.Stats()))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

// RegisterRoutes registers the stream endpoint.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/logs/stream", h.ServeHTTP)
}
