// middleware/notfound.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/mailcheck/httputil"
	"go.uber.org/zap"
)

// NotFoundHandler logs and answers unknown routes with a JSON 404. Pass it to
// chi.Router.NotFound.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return rejectHandler(logger, http.StatusNotFound, "not_found",
		"The requested resource was not found")
}

// MethodNotAllowedHandler is the 405 counterpart of NotFoundHandler.
func MethodNotAllowedHandler(logger *zap.Logger) http.HandlerFunc {
	return rejectHandler(logger, http.StatusMethodNotAllowed, "method_not_allowed",
		"The requested HTTP method is not allowed for this resource")
}

func rejectHandler(logger *zap.Logger, status int, code, message string) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info(code,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_ip", r.RemoteAddr),
		)
		httputil.JSONError(w, status, code, message)
	}
}
