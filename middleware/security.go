// middleware/security.go
package middleware

import (
	"net/http"
	"strconv"
)

// hstsMaxAge is one year.
const hstsMaxAge = 31536000

// APIHeaders sets the response headers every JSON API answer carries:
// no sniffing, no framing, no referrer, no caching of verdicts, and HSTS on
// TLS connections.
func APIHeaders() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(hstsMaxAge)+"; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
