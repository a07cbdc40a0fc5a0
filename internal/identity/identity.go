// Package identity provides anonymous per-device client identifiers.
// They partition rate limits and conversation logs; they do not authenticate.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ClientCookieName   = "partnerdesk_client_id"
	ClientHeaderName   = "X-Client-ID"
	clientCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	clientIDKey contextKey = iota
)

var clientIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// ClientIDFromContext extracts the client ID from the request context.
func ClientIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return ""
}

// WithClientID returns a copy of ctx carrying clientID.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// NewClientID returns a fresh anonymous identifier.
func NewClientID() string {
	return "anon_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValidClientID reports whether id has the anonymous identifier shape.
func IsValidClientID(id string) bool {
	return clientIDPattern.MatchString(id)
}

func getOrCreateClientID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if h := strings.TrimSpace(r.Header.Get(ClientHeaderName)); IsValidClientID(h) {
		id = h
	} else if c, err := r.Cookie(ClientCookieName); err == nil && IsValidClientID(c.Value) {
		id = c.Value
	} else {
		id = NewClientID()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(clientCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
	return id
}

// Middleware injects an anonymous per-device client ID, refreshing its cookie.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := getOrCreateClientID(w, r, isDev)
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
