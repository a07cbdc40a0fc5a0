package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialChatSocket(t *testing.T, h http.Handler) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/chat", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func TestChatSocketAnswersEachFrame(t *testing.T) {
	h := newTestRouter(t, replyWith("```sql\nSELECT name FROM partners\n```"), HandlerOptions{})
	conn, ctx := dialChatSocket(t, h)

	require.NoError(t, wsjson.Write(ctx, conn, ChatRequest{Message: "partner names"}))
	var first map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, frameResponse, first["type"])
	assert.Equal(t, "SELECT name FROM partners", first["statement"])
	assert.Len(t, first["rows"], 2)

	require.NoError(t, wsjson.Write(ctx, conn, ChatRequest{Message: "  "}))
	var second map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &second))
	assert.Equal(t, frameError, second["type"])
	assert.Equal(t, "Message is required", second["error"])
	assert.EqualValues(t, http.StatusBadRequest, second["status"])
	assert.NotContains(t, second, "text")
}

func TestChatSocketRejectsForeignOrigin(t *testing.T) {
	svc := NewService(replyWith("4."), fastPoller(3), &recordingExecutor{}, nil)
	h := NewHandler(svc, HandlerOptions{AllowedOrigin: "https://desk.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	h.HandleChatSocket(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
