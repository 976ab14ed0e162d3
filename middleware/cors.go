// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/go-chi/cors"
)

// CORSFromConfig applies the CORS section of the configuration. When CORS is
// disabled it returns an identity middleware, so it can be installed
// unconditionally. The validation status header is always exposed.
func CORSFromConfig(cfg config.CORSConfig) func(next http.Handler) http.Handler {
	if !cfg.EnableCORS {
		return func(next http.Handler) http.Handler { return next }
	}

	exposed := cfg.CORSExposedHeaders
	if !containsFold(exposed, logging.StatusHeader) {
		exposed = append(append([]string(nil), exposed...), logging.StatusHeader)
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		ExposedHeaders:   exposed,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	})
}
