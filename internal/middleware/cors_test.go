package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func serveCORS(origins []string, method, origin string) (*httptest.ResponseRecorder, bool) {
	reached := false
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(method, "/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, reached
}

func TestCORSExplicitOrigin(t *testing.T) {
	w, reached := serveCORS([]string{"http://localhost:5173"}, http.MethodPost, "http://localhost:5173")

	if !reached {
		t.Fatal("Expected request to reach handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials for explicit origin, got %q", got)
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	w, _ := serveCORS([]string{"*"}, http.MethodPost, "https://other.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://other.example.com" {
		t.Errorf("Unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Expected no credentials for wildcard, got %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	w, reached := serveCORS([]string{"http://localhost:5173"}, http.MethodPost, "https://evil.example.com")

	if !reached {
		t.Fatal("Expected request to reach handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w, reached := serveCORS([]string{"http://localhost:5173"}, http.MethodOptions, "http://localhost:5173")

	if reached {
		t.Fatal("Expected preflight not to reach handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestAllowedOrigins(t *testing.T) {
	got := AllowedOrigins(" http://localhost:5173/ ,, https://desk.example.com")
	want := []string{"http://localhost:5173", "https://desk.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins = %v, want %v", got, want)
	}
}
