//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/partnerdesk/internal/config"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "Message is required")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "Message is required" {
		t.Errorf("Unexpected error body: %v", got)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantDB     string
	}{
		{name: "healthy", db: fakePinger{}, wantStatus: http.StatusOK, wantDB: "ok"},
		{name: "database down", db: fakePinger{err: errors.New("dial tcp: refused")}, wantStatus: http.StatusServiceUnavailable, wantDB: "unreachable"},
		{name: "no database", db: nil, wantStatus: http.StatusOK, wantDB: "unconfigured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.db, nil)
			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var got map[string]string
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if got["status"] != "Server is running" {
				t.Errorf("Unexpected status text %q", got["status"])
			}
			if got["database"] != tt.wantDB {
				t.Errorf("Expected database=%s, got %q", tt.wantDB, got["database"])
			}
		})
	}
}

func TestGetConfigOmitsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = "sk-secret"
	cfg.OpenAI.AssistantID = "asst_123"
	cfg.Poll.Interval = 500 * time.Millisecond

	h := NewHandler(fakePinger{}, cfg)
	w := httptest.NewRecorder()
	h.GetConfig(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "sk-secret") || strings.Contains(body, "asst_123") {
		t.Fatalf("Config leaked credentials: %s", body)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["poll_interval_ms"] != float64(500) {
		t.Errorf("Expected poll_interval_ms=500, got %v", got["poll_interval_ms"])
	}
}
