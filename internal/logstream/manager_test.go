package logstream

import (
	"strconv"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

func TestSessionManager_Register(t *testing.T) {
	sm := NewSessionManager()

	sm.Register("stream-1", &websocket.Conn{})
	sm.Register("stream-2", &websocket.Conn{})

	if n := sm.Count(); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestSessionManager_Unregister(t *testing.T) {
	sm := NewSessionManager()

	sm.Register("stream-1", &websocket.Conn{})
	sm.Register("stream-2", &websocket.Conn{})
	sm.Unregister("stream-1")

	if n := sm.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSessionManager_UnregisterUnknown(t *testing.T) {
	sm := NewSessionManager()

	sm.Register("stream-1", &websocket.Conn{})
	sm.Unregister("stream-9")

	if n := sm.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSessionManager_ConcurrentAccess(t *testing.T) {
	sm := NewSessionManager()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sm.Register("stream-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			sm.Count()
		}
	}()
	wg.Wait()

	if n := sm.Count(); n != 1000 {
		t.Errorf("Count() = %d, want 1000", n)
	}
}
