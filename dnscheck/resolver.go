// dnscheck/resolver.go
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// Lookup kinds, also used as metric labels.
const (
	KindMX   = "mx"
	KindHost = "host"
)

// Lookup outcomes reported to Config.Observe.
const (
	OutcomeFound  = "found"
	OutcomeEmpty  = "empty"
	OutcomeCached = "cached"
	OutcomeError  = "error"
)

// netLookuper is the part of *net.Resolver the Resolver uses.
type netLookuper interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Config configures a Resolver. The zero value uses the system resolver
// with a 5s timeout, 3 attempts and no cache.
type Config struct {
	// Timeout bounds a single query attempt.
	Timeout time.Duration
	// Attempts is the number of tries for timeouts and temporary failures.
	Attempts int
	// Nameserver is host or host:port; empty uses the system configuration.
	Nameserver string

	// Cache stores answers, negative ones included, for CacheTTL.
	Cache    Cache
	CacheTTL time.Duration

	// PingDomain is queried by Ping. Default: "example.com".
	PingDomain string

	Logger *zap.Logger
	// Observe is called once per lookup with its kind, outcome and duration.
	Observe func(kind, outcome string, elapsed time.Duration)
}

// Resolver answers MX and address questions for the email validator. It
// satisfies isemail.Resolver and is safe for concurrent use.
type Resolver struct {
	net     netLookuper
	cfg     Config
	backoff backoff
	logger  *zap.Logger
}

// New creates a Resolver backed by the Go DNS client.
func New(cfg Config) *Resolver {
	nr := &net.Resolver{PreferGo: true}
	if ns := strings.TrimSpace(cfg.Nameserver); ns != "" {
		if _, _, err := net.SplitHostPort(ns); err != nil {
			ns = net.JoinHostPort(ns, "53")
		}
		nr.Dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, ns)
		}
	}
	return newResolver(nr, cfg)
}

func newResolver(l netLookuper, cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PingDomain == "" {
		cfg.PingDomain = "example.com"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		net:    l,
		cfg:    cfg,
		logger: logger,
	}
	r.backoff = backoff{
		Attempts: cfg.Attempts,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			r.logger.Debug("retrying dns lookup",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		},
	}
	return r
}

// LookupMX returns the mail exchanger hosts of domain. A domain without MX
// records yields an empty slice and no error.
func (r *Resolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	return r.resolve(ctx, KindMX, domain, func(ctx context.Context, name string) ([]string, error) {
		mxs, err := r.net.LookupMX(ctx, name)
		if err != nil {
			return nil, err
		}
		hosts := make([]string, 0, len(mxs))
		for _, mx := range mxs {
			hosts = append(hosts, mx.Host)
		}
		return hosts, nil
	})
}

// LookupAOrCNAME returns the addresses of domain, or its canonical name when
// it is an alias without addresses.
func (r *Resolver) LookupAOrCNAME(ctx context.Context, domain string) ([]string, error) {
	return r.resolve(ctx, KindHost, domain, func(ctx context.Context, name string) ([]string, error) {
		addrs, err := r.net.LookupHost(ctx, name)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
		cname, err := r.net.LookupCNAME(ctx, name)
		if err != nil {
			return nil, err
		}
		if cname == "" || strings.EqualFold(strings.TrimSuffix(cname, "."), strings.TrimSuffix(name, ".")) {
			return []string{}, nil
		}
		return []string{cname}, nil
	})
}

// Ping checks that the cache (if it can be pinged) and the nameserver
// answer. A missing record for PingDomain is not a failure.
func (r *Resolver) Ping(ctx context.Context) error {
	if p, ok := r.cfg.Cache.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("dnscheck: cache: %w", err)
		}
	}
	lctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	if _, err := r.net.LookupMX(lctx, r.cfg.PingDomain); err != nil && !isNotFound(err) {
		return fmt.Errorf("dnscheck: ping %s: %w", r.cfg.PingDomain, err)
	}
	return nil
}

// Close closes the cache.
func (r *Resolver) Close() error {
	if r.cfg.Cache == nil {
		return nil
	}
	return r.cfg.Cache.Close()
}

func (r *Resolver) resolve(ctx context.Context, kind, domain string, query func(context.Context, string) ([]string, error)) ([]string, error) {
	name, err := lookupName(domain)
	if err != nil {
		r.observe(kind, OutcomeError, 0)
		return nil, fmt.Errorf("dnscheck: %s %q: %w", kind, domain, err)
	}

	key := cacheKey(kind, name)
	if r.cfg.Cache != nil {
		recs, err := getAnswer(ctx, r.cfg.Cache, key)
		if err == nil {
			r.observe(kind, OutcomeCached, 0)
			return recs, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			r.logger.Warn("dns cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	start := time.Now()
	recs, err := retry(ctx, r.backoff, func(ctx context.Context) ([]string, error) {
		qctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		recs, err := query(qctx, name)
		if isNotFound(err) {
			return []string{}, nil
		}
		return recs, err
	})
	elapsed := time.Since(start)
	if err != nil {
		r.observe(kind, OutcomeError, elapsed)
		return nil, fmt.Errorf("dnscheck: %s lookup %s: %w", kind, name, err)
	}

	outcome := OutcomeFound
	if len(recs) == 0 {
		outcome = OutcomeEmpty
	}
	r.observe(kind, outcome, elapsed)
	r.logger.Debug("dns lookup",
		zap.String("kind", kind), zap.String("name", name),
		zap.Int("records", len(recs)), zap.Duration("elapsed", elapsed))

	if r.cfg.Cache != nil {
		if err := setAnswer(ctx, r.cfg.Cache, key, recs, r.cfg.CacheTTL); err != nil {
			r.logger.Warn("dns cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return recs, nil
}

func (r *Resolver) observe(kind, outcome string, elapsed time.Duration) {
	if r.cfg.Observe != nil {
		r.cfg.Observe(kind, outcome, elapsed)
	}
}

// lookupName lower-cases ASCII names and converts internationalised ones
// to their A-label form. A trailing dot is kept.
func lookupName(domain string) (string, error) {
	d := strings.TrimSpace(domain)
	if d == "" || d == "." {
		return "", errors.New("empty domain")
	}
	for i := 0; i < len(d); i++ {
		if d[i] >= 0x80 {
			return idna.Lookup.ToASCII(d)
		}
	}
	return strings.ToLower(d), nil
}
