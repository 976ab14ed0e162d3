// metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 2.5},
		},
		[]string{"path", "method", "status"},
	)

	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcheck_validations_total",
			Help: "Validated addresses by status band and verdict.",
		},
		[]string{"band", "valid"},
	)

	dnsLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailcheck_dns_lookups_total",
			Help: "DNS lookups by kind (mx, host) and outcome (found, empty, cached, error).",
		},
		[]string{"kind", "outcome"},
	)

	dnsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailcheck_dns_lookup_duration_seconds",
			Help:    "Duration of uncached DNS lookups, retries included.",
			Buckets: []float64{0.005, 0.02, 0.1, 0.5, 2, 10},
		},
		[]string{"kind"},
	)
)

// RegisterDefault registers the Go runtime and process collectors and every
// mailcheck collector. Call it once at startup.
//
// It panics (or logs fatally when logger is non-nil) if a registration fails
// for any reason other than the collector being registered already.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "validation counter", validations)
	mustRegister(logger, "DNS lookup counter", dnsLookups)
	mustRegister(logger, "DNS lookup histogram", dnsDuration)
}

func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	err := prometheus.Register(c)
	if err == nil {
		return
	}
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return
	}
	if logger == nil {
		panic("metrics: failed to register " + name + ": " + err.Error())
	}
	logger.Fatal("failed to register "+name, zap.Error(err))
}

// ObserveResult counts one validation. It has the signature of an
// isemail observer, see isemail.WithObserver.
func ObserveResult(res isemail.Result) {
	validations.WithLabelValues(res.Band.String(), strconv.FormatBool(res.Valid)).Inc()
}

// ObserveDNSLookup records one DNS lookup. Cached answers are counted but
// not timed.
func ObserveDNSLookup(kind, outcome string, elapsed time.Duration) {
	dnsLookups.WithLabelValues(kind, outcome).Inc()
	if elapsed > 0 {
		dnsDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// maxPathLabelLength bounds the path label.
const maxPathLabelLength = 256

// HTTPMetrics records request durations in http_request_duration_seconds,
// labelled with the chi route pattern rather than the raw path. Place it
// after the panic recoverer so recovered requests report 500.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, max(r.ProtoMajor, 1))

		next.ServeHTTP(ww, r)

		reqDuration.WithLabelValues(
			routeLabel(r),
			r.Method,
			strconv.Itoa(statusLabel(ww.Status())),
		).Observe(time.Since(start).Seconds())
	})
}

// statusLabel maps "never written" to 200 and out-of-range codes to 500.
func statusLabel(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code < 100 || code > 599:
		return http.StatusInternalServerError
	default:
		return code
	}
}

func routeLabel(r *http.Request) string {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}
	if len(path) > maxPathLabelLength {
		path = truncateUTF8(path, maxPathLabelLength-3) + "..."
	}
	return path
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
