package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// Health reports process liveness and database reachability.
// The status text is kept stable for existing monitors.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if h.db == nil {
		dbStatus = "unconfigured"
	} else if err := h.db.Ping(ctx); err != nil {
		slog.Warn("health check: database ping failed", "error", err)
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, map[string]string{
		"status":   "Server is running",
		"database": dbStatus,
	})
}

// GetConfig returns the non-secret settings a client may display.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if h.cfg == nil {
		JSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"model":             h.cfg.OpenAI.Model,
		"poll_interval_ms":  h.cfg.Poll.Interval.Milliseconds(),
		"poll_max_attempts": h.cfg.Poll.MaxAttempts,
		"db_driver":         h.cfg.Database.Driver,
		"sql_policy":        h.cfg.Database.Policy,
	})
}
