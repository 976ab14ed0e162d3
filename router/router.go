// router/router.go
package router

import (
	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// compressLevel is the gzip/deflate level for JSON and report responses.
const compressLevel = 5

// New returns a chi.Router with the standard mailcheckd middleware stack:
// request ID, real IP, panic recovery, body size limit, metrics, access log,
// API headers, CORS, compression and JSON 404/405 handlers. Routes are
// mounted by the caller.
func New(cfg *config.Config, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(middleware.LimitBodySize(cfg.MaxRequestBodyBytes))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.APIHeaders())
	r.Use(middleware.CORSFromConfig(cfg.CORS))
	r.Use(chimw.Compress(compressLevel,
		"application/json",
		"text/csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
