// middleware/apikey.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/mailcheck/httputil"
	"go.uber.org/zap"
)

// RequireAPIKey rejects requests that do not carry expected. The key is read
// from, in order:
//  1. Authorization: Bearer <key>
//  2. X-API-Key header
//  3. api_key query parameter
//
// An empty expected key disables the check.
func RequireAPIKey(expected string, logger *zap.Logger) func(next http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	want := []byte(expected)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := apiKeyFromRequest(r)
			if !ok || subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				logger.Warn("API key unauthorized",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_ip", r.RemoteAddr),
					zap.Bool("key_present", ok),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="mailcheck"`)
				httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyFromRequest(r *http.Request) (string, bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		if token := strings.TrimSpace(auth[len("bearer "):]); token != "" {
			return token, true
		}
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key, true
	}
	if key := strings.TrimSpace(r.URL.Query().Get("api_key")); key != "" {
		return key, true
	}
	return "", false
}
