package logstream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/pdsa-team/pdsa-backend/internal/api"
	"github.com/pdsa-team/pdsa-backend/internal/chatlog"
)

func readStatus(ctx context.Context, t *testing.T, conn *websocket.Conn) api.LogStatus {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("message type = %v, want text", typ)
	}
	var status api.LogStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	return status
}

func TestStreamPushesStatus(t *testing.T) {
	log := chatlog.New(filepath.Join(t.TempDir(), "chat_logs.txt"))
	sm := NewSessionManager()

	r := chi.NewRouter()
	NewWebSocketHandler(log, sm, 20*time.Millisecond, []string{"*"}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/logs/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readStatus(ctx, t, conn)
	if !first.Success || first.LogCount != 0 || first.LastUpdate != chatlog.NoUpdate {
		t.Fatalf("first status = %+v", first)
	}

	if err := log.Append("hello", "hi", ""); err != nil {
		t.Fatal(err)
	}

	for {
		status := readStatus(ctx, t, conn)
		if status.LogCount == 1 {
			if status.LogSize == 0 {
				t.Fatalf("status = %+v, want non-zero size", status)
			}
			break
		}
	}

	if n := sm.Count(); n != 1 {
		t.Errorf("active streams = %d, want 1", n)
	}
}

func TestStreamUnregistersOnClose(t *testing.T) {
	log := chatlog.New(filepath.Join(t.TempDir(), "chat_logs.txt"))
	sm := NewSessionManager()

	r := chi.NewRouter()
	NewWebSocketHandler(log, sm, 10*time.Millisecond, []string{"*"}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/logs/stream", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	readStatus(ctx, t, conn)
	conn.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(2 * time.Second)
	for sm.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
