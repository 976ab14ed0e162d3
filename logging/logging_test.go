package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"john.smith@example.com", "j***@example.com"},
		{`"a@b"@example.com`, `"***@example.com`},
		{"@example.com", "***@example.com"},
		{"nobody", "***"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAddress(tt.in))
		})
	}

	assert.Equal(t, "john@example.com", Address("email", "john@example.com", false).String)
	assert.Equal(t, "j***@example.com", Address("email", "john@example.com", true).String)
}

func TestIsValidLogLevel(t *testing.T) {
	assert.True(t, IsValidLogLevel("DEBUG"))
	assert.True(t, IsValidLogLevel("warn"))
	assert.False(t, IsValidLogLevel("verbose"))
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger("debug", "prod")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = BuildLogger("nonsense", "dev")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestRequestLoggerLogsValidationStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(StatusHeader, "RFC5321_QUOTEDSTRING")
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/validate", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "RFC5321_QUOTEDSTRING", fields["validation_status"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "/v1/validate", fields["path"])
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Recoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
