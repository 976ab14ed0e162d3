// config/config.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/mailcheck/isemail"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment variable, e.g. MAILCHECK_HTTP_PORT.
const EnvPrefix = "MAILCHECK"

// HTTPConfig groups HTTP/HTTPS port, protocol and timeout settings.
type HTTPConfig struct {
	HTTPPort  int  `mapstructure:"http_port"`
	HTTPSPort int  `mapstructure:"https_port"`
	UseHTTPS  bool `mapstructure:"use_https"`

	ReadTimeout       time.Duration `mapstructure:"-"`
	ReadHeaderTimeout time.Duration `mapstructure:"-"`
	WriteTimeout      time.Duration `mapstructure:"-"`
	IdleTimeout       time.Duration `mapstructure:"-"`
	ShutdownTimeout   time.Duration `mapstructure:"-"`
}

// TLSConfig groups manual TLS and Let's Encrypt settings.
type TLSConfig struct {
	CertFile            string `mapstructure:"cert_file"`
	KeyFile             string `mapstructure:"key_file"`
	UseLetsEncrypt      bool   `mapstructure:"use_lets_encrypt"`
	LetsEncryptEmail    string `mapstructure:"lets_encrypt_email"`
	LetsEncryptCacheDir string `mapstructure:"lets_encrypt_cache_dir"`
	Domain              string `mapstructure:"domain"`
}

// CORSConfig groups all CORS behavior and lists.
type CORSConfig struct {
	EnableCORS           bool     `mapstructure:"enable_cors"`
	CORSAllowedOrigins   []string `mapstructure:"cors_allowed_origins"`
	CORSAllowedMethods   []string `mapstructure:"cors_allowed_methods"`
	CORSAllowedHeaders   []string `mapstructure:"cors_allowed_headers"`
	CORSExposedHeaders   []string `mapstructure:"cors_exposed_headers"`
	CORSAllowCredentials bool     `mapstructure:"cors_allow_credentials"`
	CORSMaxAge           int      `mapstructure:"cors_max_age"`
}

// ValidatorConfig holds the default validation options of the service.
type ValidatorConfig struct {
	CheckDNS bool `mapstructure:"check_dns"`
	Strict   bool `mapstructure:"strict"`
	// Threshold is parsed from a code name or number.
	Threshold isemail.Code `mapstructure:"-"`
}

// Options converts the section into per-call validator options.
func (c ValidatorConfig) Options() isemail.Options {
	return isemail.Options{CheckDNS: c.CheckDNS, Strict: c.Strict, Threshold: c.Threshold}
}

// DNSConfig configures the resolver behind DNS checks.
type DNSConfig struct {
	Timeout    time.Duration `mapstructure:"-"`
	Attempts   int           `mapstructure:"dns_attempts"`
	Nameserver string        `mapstructure:"dns_nameserver"` // host:port, empty = system resolver
	Cache      string        `mapstructure:"dns_cache"`      // "off" | "memory" | "redis"
	CacheTTL   time.Duration `mapstructure:"-"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// Config is the complete configuration of mailcheckd.
type Config struct {
	// runtime
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error …

	HTTP      HTTPConfig      `mapstructure:",squash"`
	TLS       TLSConfig       `mapstructure:",squash"`
	CORS      CORSConfig      `mapstructure:",squash"`
	Validator ValidatorConfig `mapstructure:",squash"`
	DNS       DNSConfig       `mapstructure:",squash"`

	MaxRequestBodyBytes int64  `mapstructure:"max_request_body_bytes"`
	APIKey              string `mapstructure:"api_key"`
	MaxBatchSize        int    `mapstructure:"max_batch_size"`
	BatchWorkers        int    `mapstructure:"batch_workers"`
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
func (c Config) Dump() string {
	s := c.redactedCopy()
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (c Config) redactedCopy() Config {
	cp := c
	if cp.APIKey != "" {
		cp.APIKey = "[REDACTED]"
	}
	if cp.DNS.RedisPassword != "" {
		cp.DNS.RedisPassword = "[REDACTED]"
	}
	return cp
}

// durationKeys maps each duration key to its default.
var durationKeys = map[string]time.Duration{
	"read_timeout":        15 * time.Second,
	"read_header_timeout": 10 * time.Second,
	"write_timeout":       60 * time.Second,
	"idle_timeout":        120 * time.Second,
	"shutdown_timeout":    15 * time.Second,
	"dns_timeout":         5 * time.Second,
	"dns_cache_ttl":       10 * time.Minute,
}

// Load merges defaults → config.* file(s) → env vars → explicit flags into one Config.
// Final precedence (highest wins): flags(explicit) > env > config > defaults.
// args are the command line arguments without the program name.
func Load(logger *zap.Logger, args []string) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 0) Optionally load .env (safe: real env still wins over .env)
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded .env file")
	}

	// 1) Define flags (only *explicitly set* flags will override)
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// 2) Viper + env
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range allKeys() {
		_ = v.BindEnv(k)
	}

	// 3) Optional config.* files (yaml|yml|json|toml)
	mergeConfigFiles(logger, v)

	// 4) Defaults (lowest precedence)
	setDefaults(v)

	// 5) Apply *explicit* flags (highest precedence)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = v.BindPFlag(f.Name, f)
		}
	})

	// 6) Normalize list keys (accept JSON strings → []string)
	if err := normalizeListKeys(logger, v,
		"cors_allowed_origins",
		"cors_allowed_methods",
		"cors_allowed_headers",
		"cors_exposed_headers",
	); err != nil {
		return nil, err
	}

	// 7) Build struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	durations := make(map[string]time.Duration, len(durationKeys))
	for key, def := range durationKeys {
		d, err := parseDurationFlexible(v.Get(key), def)
		if err != nil {
			logger.Warn("invalid duration; using default",
				zap.String("key", key), zap.Any("value", v.Get(key)),
				zap.Duration("default", def), zap.Error(err))
		}
		durations[key] = d
	}
	cfg.HTTP.ReadTimeout = durations["read_timeout"]
	cfg.HTTP.ReadHeaderTimeout = durations["read_header_timeout"]
	cfg.HTTP.WriteTimeout = durations["write_timeout"]
	cfg.HTTP.IdleTimeout = durations["idle_timeout"]
	cfg.HTTP.ShutdownTimeout = durations["shutdown_timeout"]
	cfg.DNS.Timeout = durations["dns_timeout"]
	cfg.DNS.CacheTTL = durations["dns_cache_ttl"]

	threshold, err := isemail.ParseCode(v.GetString("threshold"))
	if err != nil {
		return nil, fmt.Errorf("configuration errors: invalid: threshold: %w", err)
	}
	cfg.Validator.Threshold = threshold
	cfg.DNS.Cache = strings.ToLower(strings.TrimSpace(cfg.DNS.Cache))

	// 8) Validate
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Flags declares every configuration flag on a fresh FlagSet.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("mailcheckd", pflag.ContinueOnError)

	fs.String("env", "dev", `Runtime environment "dev"|"prod"`)
	fs.String("log_level", "info", "Log level")

	fs.Int("http_port", 8080, "HTTP port")
	fs.Int("https_port", 443, "HTTPS port")
	fs.Bool("use_https", false, "Serve HTTPS")
	fs.String("read_timeout", "15s", "HTTP read timeout")
	fs.String("read_header_timeout", "10s", "HTTP read header timeout")
	fs.String("write_timeout", "60s", "HTTP write timeout")
	fs.String("idle_timeout", "120s", "HTTP idle timeout")
	fs.String("shutdown_timeout", "15s", "Graceful shutdown timeout")

	// TLS / Let’s Encrypt
	fs.Bool("use_lets_encrypt", false, "Use Let's Encrypt")
	fs.String("lets_encrypt_email", "", "ACME account e-mail")
	fs.String("lets_encrypt_cache_dir", "letsencrypt-cache", "ACME cache dir")
	fs.String("cert_file", "", "TLS cert file (manual TLS)")
	fs.String("key_file", "", "TLS key file  (manual TLS)")
	fs.String("domain", "", "Domain for TLS or ACME")

	// CORS lists as JSON strings or arrays
	fs.Bool("enable_cors", false, "Enable CORS")
	fs.String("cors_allowed_origins", "", `JSON array of origins, e.g. '["https://a.example","https://b.example"]'`)
	fs.String("cors_allowed_methods", "", `JSON array of methods, e.g. '["GET","POST"]'`)
	fs.String("cors_allowed_headers", "", `JSON array of headers, e.g. '["Accept","Authorization"]'`)
	fs.String("cors_exposed_headers", "", `JSON array of headers, e.g. '["X-Mailcheck-Status"]'`)
	fs.Bool("cors_allow_credentials", false, "CORS: allow credentials")
	fs.Int("cors_max_age", 0, "CORS: max age seconds (0 disables cache)")

	// validation defaults
	fs.Bool("check_dns", false, "Look up MX/A records by default")
	fs.Bool("strict", false, "Only accept addresses without any diagnosis")
	fs.String("threshold", strconv.Itoa(int(isemail.DefaultThreshold)), "Accept statuses below this (code name or number)")

	// DNS
	fs.String("dns_timeout", "5s", "Timeout for a single DNS lookup")
	fs.Int("dns_attempts", 3, "Attempts for temporary DNS failures")
	fs.String("dns_nameserver", "", "Nameserver host:port (empty = system resolver)")
	fs.String("dns_cache", "memory", `DNS answer cache: "off", "memory" or "redis"`)
	fs.String("dns_cache_ttl", "10m", "How long DNS answers are cached")
	fs.String("redis_addr", "", "Redis address for dns_cache=redis")
	fs.String("redis_password", "", "Redis password")
	fs.Int("redis_db", 0, "Redis database number")

	fs.Int64("max_request_body_bytes", 1<<20, "Max HTTP request body size in bytes (0 = unlimited)")
	fs.String("api_key", "", "API key required for /v1 endpoints (empty disables)")
	fs.Int("max_batch_size", 1000, "Maximum addresses per batch request")
	fs.Int("batch_workers", 8, "Concurrent validations per batch request")

	return fs
}

func mergeConfigFiles(logger *zap.Logger, v *viper.Viper) {
	for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
		file := "config." + ext
		if _, err := os.Stat(file); err != nil {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("cannot read config file", zap.String("file", file), zap.Error(err))
			continue
		}
		v.SetConfigType(ext)
		if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
			logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
			continue
		}
		logger.Info("Loaded config file", zap.String("file", file))
	}
}

func allKeys() []string {
	keys := []string{
		"env", "log_level",
		"http_port", "https_port", "use_https",
		"use_lets_encrypt", "lets_encrypt_email", "lets_encrypt_cache_dir",
		"cert_file", "key_file", "domain",
		"enable_cors",
		"cors_allowed_origins", "cors_allowed_methods", "cors_allowed_headers",
		"cors_exposed_headers", "cors_allow_credentials", "cors_max_age",
		"check_dns", "strict", "threshold",
		"dns_attempts", "dns_nameserver", "dns_cache",
		"redis_addr", "redis_password", "redis_db",
		"max_request_body_bytes", "api_key", "max_batch_size", "batch_workers",
	}
	for k := range durationKeys {
		keys = append(keys, k)
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http_port", 8080)
	v.SetDefault("https_port", 443)
	v.SetDefault("use_https", false)

	v.SetDefault("use_lets_encrypt", false)
	v.SetDefault("lets_encrypt_email", "")
	v.SetDefault("lets_encrypt_cache_dir", "letsencrypt-cache")
	v.SetDefault("cert_file", "")
	v.SetDefault("key_file", "")
	v.SetDefault("domain", "")

	// Neutral CORS defaults
	v.SetDefault("enable_cors", false)
	v.SetDefault("cors_allowed_origins", []string{})
	v.SetDefault("cors_allowed_methods", []string{})
	v.SetDefault("cors_allowed_headers", []string{})
	v.SetDefault("cors_exposed_headers", []string{})
	v.SetDefault("cors_allow_credentials", false)
	v.SetDefault("cors_max_age", 0)

	v.SetDefault("check_dns", false)
	v.SetDefault("strict", false)
	v.SetDefault("threshold", strconv.Itoa(int(isemail.DefaultThreshold)))

	v.SetDefault("dns_attempts", 3)
	v.SetDefault("dns_nameserver", "")
	v.SetDefault("dns_cache", "memory")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	for k, d := range durationKeys {
		v.SetDefault(k, d.String())
	}

	v.SetDefault("max_request_body_bytes", int64(1<<20))
	v.SetDefault("api_key", "")
	v.SetDefault("max_batch_size", 1000)
	v.SetDefault("batch_workers", 8)
}

// normalizeListKeys coerces JSON-string values into []string for the given keys.
func normalizeListKeys(logger *zap.Logger, v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		val := v.Get(key)
		switch t := val.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				v.Set(key, []string{})
				continue
			}
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				return fmt.Errorf("config key %q expects a JSON array string, got %q: %w", key, s, err)
			}
			v.Set(key, arr)
		case []interface{}:
			arr := make([]string, 0, len(t))
			for _, e := range t {
				arr = append(arr, fmt.Sprint(e))
			}
			v.Set(key, arr)
		case []string, nil:
			// already correct or unset
		default:
			logger.Warn("unexpected type for list key; expected JSON array/string",
				zap.String("key", key), zap.Any("value", t))
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	var missing []string
	var invalid []string

	// TLS / ACME consistency
	if cfg.TLS.UseLetsEncrypt && !cfg.HTTP.UseHTTPS {
		invalid = append(invalid, "use_lets_encrypt=true requires use_https=true")
	}
	if cfg.TLS.UseLetsEncrypt && (strings.TrimSpace(cfg.TLS.CertFile) != "" || strings.TrimSpace(cfg.TLS.KeyFile) != "") {
		invalid = append(invalid, "use_lets_encrypt=true cannot be combined with cert_file/key_file")
	}
	if cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.Domain) == "" {
			missing = append(missing, "MAILCHECK_DOMAIN (or --domain) for Let's Encrypt")
		}
		if s := strings.TrimSpace(cfg.TLS.LetsEncryptEmail); s == "" {
			missing = append(missing, "MAILCHECK_LETS_ENCRYPT_EMAIL (or --lets_encrypt_email)")
		} else if !isAccountEmail(s) {
			invalid = append(invalid, "lets_encrypt_email must be a plain RFC 5321 mailbox")
		}
	}

	// Manual TLS requirements
	if cfg.HTTP.UseHTTPS && !cfg.TLS.UseLetsEncrypt {
		if strings.TrimSpace(cfg.TLS.CertFile) == "" || strings.TrimSpace(cfg.TLS.KeyFile) == "" {
			missing = append(missing, "MAILCHECK_CERT_FILE and MAILCHECK_KEY_FILE (or --cert_file/--key_file) for manual TLS")
		}
	}

	// Port sanity
	if cfg.HTTP.HTTPPort <= 0 || cfg.HTTP.HTTPPort > 65535 {
		invalid = append(invalid, "http_port must be in 1..65535")
	}
	if cfg.HTTP.HTTPSPort <= 0 || cfg.HTTP.HTTPSPort > 65535 {
		invalid = append(invalid, "https_port must be in 1..65535")
	}
	if cfg.HTTP.UseHTTPS {
		if cfg.HTTP.HTTPPort == cfg.HTTP.HTTPSPort {
			invalid = append(invalid, "http_port and https_port cannot be equal when use_https=true")
		}
		if cfg.HTTP.HTTPSPort == 80 {
			invalid = append(invalid, "https_port cannot be 80; port 80 is used by the ACME/redirect server")
		}
	}

	// CORS sanity
	if cfg.CORS.EnableCORS {
		if len(cfg.CORS.CORSAllowedOrigins) == 0 {
			missing = append(missing, "CORS: cors_allowed_origins (JSON array) required when enable_cors=true")
		}
		if len(cfg.CORS.CORSAllowedMethods) == 0 {
			missing = append(missing, "CORS: cors_allowed_methods (JSON array) required when enable_cors=true")
		}
		for _, o := range cfg.CORS.CORSAllowedOrigins {
			if o == "*" && cfg.CORS.CORSAllowCredentials {
				invalid = append(invalid, `CORS: cannot use "*" in cors_allowed_origins when cors_allow_credentials=true`)
				break
			}
		}
		if cfg.CORS.CORSMaxAge < 0 {
			invalid = append(invalid, "CORS: cors_max_age must be >= 0")
		}
	}

	// Validation and DNS
	if cfg.Validator.Threshold.IsFatal() {
		invalid = append(invalid, "threshold must not be in the ERR band")
	}
	if cfg.DNS.Attempts < 1 {
		invalid = append(invalid, "dns_attempts must be >= 1")
	}
	switch cfg.DNS.Cache {
	case "off", "memory":
	case "redis":
		if strings.TrimSpace(cfg.DNS.RedisAddr) == "" {
			missing = append(missing, "MAILCHECK_REDIS_ADDR (or --redis_addr) for dns_cache=redis")
		}
	default:
		invalid = append(invalid, `dns_cache must be "off", "memory" or "redis"`)
	}

	// Batch limits
	if cfg.MaxBatchSize < 1 {
		invalid = append(invalid, "max_batch_size must be >= 1")
	}
	if cfg.BatchWorkers < 1 {
		invalid = append(invalid, "batch_workers must be >= 1")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(parts, " | "))
}

// isAccountEmail accepts addresses ACME servers will take for account
// recovery: valid, no comments or quoting, no address literal.
func isAccountEmail(s string) bool {
	res := isemail.Validate(s)
	return res.Valid && res.Status <= isemail.MaxRFC5321 && res.Status != isemail.RFC5321AddressLiteral &&
		res.Status != isemail.RFC5321QuotedString
}
