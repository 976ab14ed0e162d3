package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// isolate runs the test in an empty directory so no config.* or .env file
// from the repository leaks in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 8080, cfg.HTTP.HTTPPort)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 5*time.Second, cfg.DNS.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.DNS.CacheTTL)
	assert.Equal(t, 3, cfg.DNS.Attempts)
	assert.Equal(t, "memory", cfg.DNS.Cache)
	assert.Equal(t, isemail.DefaultThreshold, cfg.Validator.Threshold)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodyBytes)
	assert.Equal(t, 1000, cfg.MaxBatchSize)
	assert.Equal(t, 8, cfg.BatchWorkers)
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("http_port: 9000\nbatch_workers: 2\nthreshold: CFWS_FWS\n"), 0o600))
	t.Setenv("MAILCHECK_HTTP_PORT", "9100")
	t.Setenv("MAILCHECK_DNS_TIMEOUT", "7")

	cfg, err := Load(zaptest.NewLogger(t), []string{"--batch_workers=4", "--strict"})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTP.HTTPPort, "env beats config file")
	assert.Equal(t, 4, cfg.BatchWorkers, "flag beats config file")
	assert.Equal(t, isemail.CFWSFWS, cfg.Validator.Threshold)
	assert.Equal(t, 7*time.Second, cfg.DNS.Timeout)
	assert.True(t, cfg.Validator.Strict)
	assert.Equal(t, isemail.Options{Strict: true, Threshold: isemail.CFWSFWS}, cfg.Validator.Options())
}

func TestLoadListKeysFromJSON(t *testing.T) {
	isolate(t)
	t.Setenv("MAILCHECK_ENABLE_CORS", "true")
	t.Setenv("MAILCHECK_CORS_ALLOWED_ORIGINS", `["https://a.example","https://b.example"]`)
	t.Setenv("MAILCHECK_CORS_ALLOWED_METHODS", `["GET","POST"]`)

	cfg, err := Load(zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.CORSAllowedOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORS.CORSAllowedMethods)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv("MAILCHECK_READ_TIMEOUT", "soon")

	cfg, err := Load(zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"redis cache without address", map[string]string{"MAILCHECK_DNS_CACHE": "redis"}, "MAILCHECK_REDIS_ADDR"},
		{"unknown cache", map[string]string{"MAILCHECK_DNS_CACHE": "disk"}, "dns_cache must be"},
		{"zero attempts", map[string]string{"MAILCHECK_DNS_ATTEMPTS": "0"}, "dns_attempts"},
		{"zero workers", map[string]string{"MAILCHECK_BATCH_WORKERS": "0"}, "batch_workers"},
		{"fatal threshold", map[string]string{"MAILCHECK_THRESHOLD": "ERR_NODOMAIN"}, "ERR band"},
		{"bad threshold", map[string]string{"MAILCHECK_THRESHOLD": "lenient"}, "threshold"},
		{"manual tls without files", map[string]string{"MAILCHECK_USE_HTTPS": "true"}, "MAILCHECK_CERT_FILE"},
		{
			"acme with quoted email",
			map[string]string{
				"MAILCHECK_USE_HTTPS":          "true",
				"MAILCHECK_USE_LETS_ENCRYPT":   "true",
				"MAILCHECK_DOMAIN":             "mail.example.com",
				"MAILCHECK_LETS_ENCRYPT_EMAIL": `"ops team"@example.com`,
			},
			"lets_encrypt_email",
		},
		{"cors without origins", map[string]string{"MAILCHECK_ENABLE_CORS": "true"}, "cors_allowed_origins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(zaptest.NewLogger(t), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAcceptsLetsEncrypt(t *testing.T) {
	isolate(t)
	t.Setenv("MAILCHECK_USE_HTTPS", "true")
	t.Setenv("MAILCHECK_USE_LETS_ENCRYPT", "true")
	t.Setenv("MAILCHECK_DOMAIN", "mail.example.com")
	t.Setenv("MAILCHECK_LETS_ENCRYPT_EMAIL", "ops@example.com")

	cfg, err := Load(zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.True(t, cfg.TLS.UseLetsEncrypt)
}

func TestDumpRedactsSecrets(t *testing.T) {
	cfg := Config{APIKey: "s3cret", DNS: DNSConfig{RedisPassword: "hunter2"}}
	out := cfg.Dump()
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "hunter2")
	assert.Equal(t, 2, strings.Count(out, "[REDACTED]"))
	assert.Equal(t, "s3cret", cfg.APIKey)
}

func TestParseDurationFlexible(t *testing.T) {
	def := 3 * time.Second
	tests := []struct {
		raw     interface{}
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"120", 2 * time.Minute, false},
		{"1.5", 1500 * time.Millisecond, false},
		{42, 42 * time.Second, false},
		{int64(1), time.Second, false},
		{0.25, 250 * time.Millisecond, false},
		{time.Minute, time.Minute, false},
		{"", def, false},
		{nil, def, false},
		{true, def, false},
		{"-5s", def, true},
		{0, def, true},
		{"later", def, true},
	}
	for _, tt := range tests {
		got, err := parseDurationFlexible(tt.raw, def)
		assert.Equal(t, tt.want, got, "%v", tt.raw)
		assert.Equal(t, tt.wantErr, err != nil, "%v", tt.raw)
	}
}

func TestMergeConfigFilesIgnoresBrokenFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.json"), []byte("{not json"), 0o600))

	cfg, err := Load(zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.HTTPPort)
}
