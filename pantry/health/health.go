// health/health.go
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/mailcheck/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check tests one dependency and returns nil when it is healthy.
type Check func(ctx context.Context) error

// Response is the JSON body of the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DefaultTimeout bounds all checks of one request.
const DefaultTimeout = 3 * time.Second

// Handler runs every check concurrently and answers 200 {"status":"ok"} or
// 503 {"status":"error"} with a per-check breakdown. Without checks it is a
// plain liveness check.
func Handler(checks map[string]Check, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			failed  bool
			results = make(map[string]string, len(checks))
		)
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				msg := "ok"
				if check != nil {
					if err := check(ctx); err != nil {
						logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
						msg = "error: " + err.Error()
					}
				}
				mu.Lock()
				defer mu.Unlock()
				results[name] = msg
				failed = failed || msg != "ok"
			}(name, check)
		}
		wg.Wait()

		status, code := "ok", http.StatusOK
		if failed {
			status, code = "error", http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, Response{Status: status, Checks: results})
	})
}

// Mount attaches GET /health.
func Mount(r chi.Router, checks map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(checks, logger))
}
