package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func serveCORS(allowed []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/health", http.NoBody)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORSWildcard(t *testing.T) {
	w := serveCORS([]string{"*"}, http.MethodGet, "http://localhost:3000")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("wildcard must not allow credentials, got %q", got)
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want next handler", w.Code)
	}
}

func TestCORSExplicitOrigin(t *testing.T) {
	w := serveCORS([]string{"https://pdsa.example.com"}, http.MethodGet, "https://pdsa.example.com")
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}

	w = serveCORS([]string{"https://pdsa.example.com"}, http.MethodGet, "https://evil.example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	w := serveCORS([]string{"*"}, http.MethodOptions, "http://localhost:3000")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestOriginPatterns(t *testing.T) {
	got := OriginPatterns([]string{"*", "https://pdsa.example.com", " http://localhost:5173 ", "", "*.example.org"})
	want := []string{"*", "pdsa.example.com", "localhost:5173", "*.example.org"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("OriginPatterns = %v, want %v", got, want)
	}
}
