package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/partnerdesk/internal/api"
	"github.com/ashureev/partnerdesk/internal/identity"
	"github.com/ashureev/partnerdesk/internal/ratelimit"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Handler serves the chat endpoints.
type Handler struct {
	service       *Service
	rateLimiter   ratelimit.Limiter
	maxBodySize   int64
	allowedOrigin string
	isDev         bool
}

// HandlerOptions configures a Handler. Zero values fall back to defaults.
type HandlerOptions struct {
	RateLimiter   ratelimit.Limiter // nil disables rate limiting
	MaxBodySize   int64
	AllowedOrigin string
	IsDev         bool
}

// NewHandler creates a chat handler around service.
func NewHandler(service *Service, opts HandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxRequestBodySize
	}
	return &Handler{
		service:       service,
		rateLimiter:   opts.RateLimiter,
		maxBodySize:   opts.MaxBodySize,
		allowedOrigin: opts.AllowedOrigin,
		isDev:         opts.IsDev,
	}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Get("/ws/chat", h.HandleChatSocket)
}

// HandleChat handles POST /chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientIDFromContext(r.Context())
	if !h.allow(r.Context(), rateLimitKey(r, clientID)) {
		api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	slog.Info("chat request",
		"client_id", clientID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	resp, err := h.service.HandleChatMessage(r.Context(), req.Message)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("chat failed", "client_id", clientID, "error", err, "duration", time.Since(start))
		}
		api.Error(w, status, msg)
		return
	}

	slog.Info("chat answered",
		"client_id", clientID,
		"has_statement", resp.HasStatement(),
		"statement_failed", resp.ErrorMessage != "",
		"duration", time.Since(start),
	)
	api.JSON(w, http.StatusOK, resp)
}

// allow consults the rate limiter. Limiter failures let the request through.
func (h *Handler) allow(ctx context.Context, key string) bool {
	if h.rateLimiter == nil {
		return true
	}
	ok, err := h.rateLimiter.Allow(ctx, key)
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return ok
}

func rateLimitKey(r *http.Request, clientID string) string {
	if clientID != "" {
		return clientID
	}
	return "ip:" + identity.IPFromRequest(r)
}

// errorStatus maps orchestrator errors to an HTTP status and client message.
func errorStatus(err error) (int, string) {
	var (
		stageErr    *StageError
		runErr      *RunError
		protocolErr *ProtocolError
	)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.As(err, &stageErr), errors.As(err, &runErr), errors.As(err, &protocolErr):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, "request cancelled"
	default:
		return http.StatusInternalServerError, "Failed to get response from AI. Please try again."
	}
}
