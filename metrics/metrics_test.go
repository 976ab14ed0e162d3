package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveResult(t *testing.T) {
	before := testutil.ToFloat64(validations.WithLabelValues("ERR", "false"))
	ObserveResult(isemail.Validate("@example.com"))
	assert.Equal(t, before+1, testutil.ToFloat64(validations.WithLabelValues("ERR", "false")))
}

func TestObserveDNSLookup(t *testing.T) {
	before := testutil.ToFloat64(dnsLookups.WithLabelValues("mx", "cached"))
	ObserveDNSLookup("mx", "cached", 0)
	ObserveDNSLookup("mx", "found", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(dnsLookups.WithLabelValues("mx", "cached")))
	assert.Equal(t, 1, testutil.CollectAndCount(dnsDuration))
}

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	var lastRoute string
	r.Get("/v1/codes/{name}", func(w http.ResponseWriter, req *http.Request) {
		lastRoute = routeLabel(req)
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/codes/ERR_NODOMAIN", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, testutil.CollectAndCount(reqDuration, "http_request_duration_seconds"))
	assert.Equal(t, "/v1/codes/{name}", lastRoute)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, 200, statusLabel(0))
	assert.Equal(t, 500, statusLabel(42))
	assert.Equal(t, 404, statusLabel(404))
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "ab", truncateUTF8("abc", 2))
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "", truncateUTF8("abc", 0))

	long := "/" + strings.Repeat("x", 400)
	req := httptest.NewRequest(http.MethodGet, long, nil)
	assert.Len(t, routeLabel(req), maxPathLabelLength)
}

func TestRegisterDefaultTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterDefault(nil)
		RegisterDefault(nil)
	})
}
