package agent

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/partnerdesk/internal/api"
	"github.com/ashureev/partnerdesk/internal/identity"
)

// maxSocketFrameSize caps a single inbound chat frame.
const maxSocketFrameSize = 64 << 10

// HandleChatSocket handles GET /ws/chat. Every inbound {message} frame is
// answered with exactly one response or error frame, in order.
func (h *Handler) HandleChatSocket(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientIDFromContext(r.Context())

	if !h.checkOrigin(r) {
		api.Error(w, http.StatusForbidden, "origin not allowed")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()
	ws.SetReadLimit(maxSocketFrameSize)

	ctx := r.Context()
	slog.Info("chat socket connected", "client_id", clientID)

	for {
		var req ChatRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("chat socket closed by client", "client_id", clientID)
			} else {
				slog.Warn("chat socket read error", "error", err, "client_id", clientID)
			}
			return
		}

		frame := socketFrame{Type: frameResponse}
		if !h.allow(ctx, rateLimitKey(r, clientID)) {
			frame = socketFrame{Type: frameError, Error: "rate limit exceeded", Status: http.StatusTooManyRequests}
		} else if resp, err := h.service.HandleChatMessage(ctx, req.Message); err != nil {
			status, msg := errorStatus(err)
			frame = socketFrame{Type: frameError, Error: msg, Status: status}
		} else {
			frame.ChatResponse = resp
		}

		if err := wsjson.Write(ctx, ws, frame); err != nil {
			slog.Warn("chat socket write error", "error", err, "client_id", clientID)
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
