package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const clientKeyKey contextKey = "client_key"

func SetClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyKey, key)
}

// GetClientKey returns the key identifying the caller for rate limiting.
func GetClientKey(r *http.Request) (string, bool) {
	key, ok := r.Context().Value(clientKeyKey).(string)
	return key, ok && key != ""
}

// ClientKey identifies the caller by the host of r.RemoteAddr. Forwarding headers are
// ignored here; behind a trusted proxy, run chi's middleware.RealIP first so RemoteAddr
// already holds the forwarded client address.
func ClientKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := clientAddress(r); key != "" {
			r = r.WithContext(SetClientKey(r.Context(), key))
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
