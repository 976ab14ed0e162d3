package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dalemusser/mailcheck/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIsValidHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"example.com:8443", true},
		{"[::1]:443", true},
		{"[fe80::1%eth0]", true},
		{"", false},
		{"example.com:0", false},
		{"example.com:99999", false},
		{"[nope]", false},
		{"evil.com\r\nSet-Cookie: x", false},
		{"https://evil.com", false},
		{"/path", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidHost(tt.host), tt.host)
	}
}

func TestHTTPRedirectHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://mail.example.com/v1/codes?x=1", nil)
	rec := httptest.NewRecorder()
	httpRedirectHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://mail.example.com/v1/codes?x=1", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = ""
	rec = httptest.NewRecorder()
	httpRedirectHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateTLSFiles(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o644))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))

	assert.NoError(t, validateTLSFiles(cert, key))
	assert.Error(t, validateTLSFiles("", key))
	assert.Error(t, validateTLSFiles(filepath.Join(dir, "missing.pem"), key))
	assert.Error(t, validateTLSFiles(dir, key))

	if runtime.GOOS != "windows" {
		require.NoError(t, os.Chmod(key, 0o644))
		err := validateTLSFiles(cert, key)
		assert.True(t, errors.Is(err, errInsecureKey))
	}
}

func TestListenAndServeHTTPStopsOnCancel(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTP.HTTPPort = freePort(t)
	cfg.HTTP.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServeWithContext(ctx, cfg, http.NotFoundHandler(), zaptest.NewLogger(t))
	}()

	addr := "http://127.0.0.1:" + itoa(cfg.HTTP.HTTPPort) + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenAndServeRejectsNil(t *testing.T) {
	assert.Error(t, ListenAndServeWithContext(context.Background(), nil, http.NotFoundHandler(), nil))
	assert.Error(t, ListenAndServeWithContext(context.Background(), &config.Config{}, nil, nil))
}
