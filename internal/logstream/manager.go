// Package logstream pushes live chat log status to WebSocket subscribers.
package logstream

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks open stream connections so they can be closed
// together on shutdown.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*websocket.Conn),
	}
}

// Count returns the number of open connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register adds a connection under a session ID unique to it.
func (m *SessionManager) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[sessionID] = conn
	slog.Debug("Log stream registered", "session_id", sessionID, "active", len(m.active))
}

// Unregister removes a connection. Unknown session IDs are ignored.
func (m *SessionManager) Unregister(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[sessionID]; exists {
		delete(m.active, sessionID)
		slog.Debug("Log stream unregistered", "session_id", sessionID, "active", len(m.active))
	}
}

// CloseAll closes every open connection.
func (m *SessionManager) CloseAll(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, conn := range m.active {
		_ = conn.Close(websocket.StatusGoingAway, reason)
		delete(m.active, sid)
	}
}
