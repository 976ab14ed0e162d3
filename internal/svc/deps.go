// internal/svc/deps.go
package svc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/mailcheck/app"
	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/dnscheck"
	"github.com/dalemusser/mailcheck/internal/api"
	"github.com/dalemusser/mailcheck/isemail"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/pantry/health"
	"github.com/dalemusser/mailcheck/pantry/version"
	"github.com/dalemusser/mailcheck/router"
	"go.uber.org/zap"
)

// Name is the service and binary name.
const Name = "mailcheckd"

// Deps is what mailcheckd connects at startup.
type Deps struct {
	Validator *isemail.Validator
	Resolver  *dnscheck.Resolver
	Cache     dnscheck.Cache
}

// Hooks returns the app hooks of mailcheckd; args are the configuration
// flags.
func Hooks(args []string) app.Hooks[*Deps] {
	return app.Hooks[*Deps]{
		Name: Name,
		LoadConfig: func(logger *zap.Logger) (*config.Config, error) {
			return config.Load(logger, args)
		},
		Connect:      Connect,
		Close:        Close,
		BuildHandler: BuildHandler,
	}
}

// Connect builds the DNS cache, resolver and validator.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	cache, err := newCache(ctx, cfg.DNS)
	if err != nil {
		return nil, err
	}

	resolver := dnscheck.New(dnscheck.Config{
		Timeout:    cfg.DNS.Timeout,
		Attempts:   cfg.DNS.Attempts,
		Nameserver: cfg.DNS.Nameserver,
		Cache:      cache,
		CacheTTL:   cfg.DNS.CacheTTL,
		Logger:     logger.Named("dns"),
		Observe:    metrics.ObserveDNSLookup,
	})

	v := isemail.New(
		isemail.WithResolver(resolver),
		isemail.WithLogger(logger.Named("isemail")),
		isemail.WithDefaults(cfg.Validator.Options()),
		isemail.WithObserver(metrics.ObserveResult),
	)

	logger.Info("validator ready",
		zap.Bool("check_dns", cfg.Validator.CheckDNS),
		zap.Bool("strict", cfg.Validator.Strict),
		zap.Stringer("threshold", cfg.Validator.Threshold),
		zap.String("dns_cache", cfg.DNS.Cache))

	return &Deps{Validator: v, Resolver: resolver, Cache: cache}, nil
}

func newCache(ctx context.Context, cfg config.DNSConfig) (dnscheck.Cache, error) {
	switch cfg.Cache {
	case "off", "":
		return nil, nil
	case "redis":
		rc, err := dnscheck.NewRedisCache(ctx, dnscheck.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("dns cache: %w", err)
		}
		return rc, nil
	default:
		return dnscheck.NewMemoryCache(cfg.CacheTTL), nil
	}
}

// Close releases the resolver and its cache.
func Close(d *Deps) error {
	if d == nil || d.Resolver == nil {
		return nil
	}
	return d.Resolver.Close()
}

// BuildHandler mounts the API, health, version and metrics routes.
func BuildHandler(cfg *config.Config, d *Deps, logger *zap.Logger) (http.Handler, error) {
	if d == nil || d.Validator == nil {
		return nil, fmt.Errorf("validator not connected")
	}
	r := router.New(cfg, logger)

	checks := map[string]health.Check{}
	if cfg.Validator.CheckDNS && d.Resolver != nil {
		checks["dns"] = d.Resolver.Ping
	} else if p, ok := d.Cache.(interface{ Ping(context.Context) error }); ok {
		checks["cache"] = p.Ping
	}
	health.Mount(r, checks, logger)
	version.Mount(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	api.New(d.Validator, api.Config{
		APIKey:        cfg.APIKey,
		MaxBatchSize:  cfg.MaxBatchSize,
		BatchWorkers:  cfg.BatchWorkers,
		MaskAddresses: cfg.Env == "prod",
	}, logger.Named("api")).Mount(r)

	return r, nil
}
