package daemon

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// authMiddleware wraps a handler with bearer token validation. An empty
// token disables authentication entirely, which is the default for local
// loopback deployments.
func authMiddleware(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimPrefix(header, bearerPrefix) != token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
