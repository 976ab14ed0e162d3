// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dalemusser/mailcheck/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

// errInsecureKey marks a key file readable by group or others.
var errInsecureKey = errors.New("overly permissive permissions")

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM. The
// cancel function also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler over HTTP, HTTPS with Let's
// Encrypt (http-01) or HTTPS with the configured certificate, and blocks
// until ctx is canceled or a server fails. In both HTTPS modes port 80
// redirects to HTTPS and, for Let's Encrypt, answers ACME challenges.
func ListenAndServeWithContext(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("server: cfg is nil")
	}
	if handler == nil {
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg, handler, logger)

	var (
		ln     net.Listener
		auxSrv *http.Server
		auxErr chan error // nil (never ready) in HTTP-only mode
		err    error
	)
	startAux := func(h http.Handler) {
		s, ch := newHTTPServer(cfg, h, logger), make(chan error, 1)
		s.Addr = ":80"
		go func() { ch <- ignoreClosed(s.ListenAndServe()) }()
		auxSrv, auxErr = s, ch
		logger.Info("redirect server listening", zap.String("addr", s.Addr))
	}
	switch {
	case !cfg.HTTP.UseHTTPS:
		ln, err = net.Listen("tcp", ":"+strconv.Itoa(cfg.HTTP.HTTPPort))
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	case cfg.TLS.UseLetsEncrypt:
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		startAux(m.HTTPHandler(httpRedirectHandler()))
		if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
			logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
		}
		ln, err = listenTLS(cfg, &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate})
		if err != nil {
			shutdown(context.Background(), auxSrv)
			return err
		}
		logger.Info("HTTPS server (Let's Encrypt) listening",
			zap.String("addr", ln.Addr().String()), zap.String("domain", cfg.TLS.Domain))

	default:
		if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			if !errors.Is(err, errInsecureKey) || cfg.Env == "prod" {
				return err
			}
			logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		startAux(httpRedirectHandler())
		ln, err = listenTLS(cfg, &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}})
		if err != nil {
			shutdown(context.Background(), auxSrv)
			return err
		}
		logger.Info("HTTPS server (manual TLS) listening",
			zap.String("addr", ln.Addr().String()), zap.String("cert_file", cfg.TLS.CertFile))
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- ignoreClosed(srv.Serve(ln)) }()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server…")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			shutdown(shutdownCtx, auxSrv)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			shutdown(context.Background(), auxSrv)
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				_ = srv.Close()
				return fmt.Errorf("redirect server error: %w", err)
			}
			auxSrv, auxErr = nil, nil
		}
	}
}

func newHTTPServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

func listenTLS(cfg *config.Config, tlsCfg *tls.Config) (net.Listener, error) {
	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen https %s: %w", addr, err)
	}
	return tls.NewListener(ln, tlsCfg), nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func shutdown(ctx context.Context, srv *http.Server) {
	if srv != nil {
		_ = srv.Shutdown(ctx)
	}
}

// httpRedirectHandler sends every request to the same host and path over
// HTTPS. Hosts and URIs with control characters are refused.
func httpRedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.RequestURI()
		if !isValidHost(r.Host) || strings.ContainsFunc(uri, isControl) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+uri, http.StatusMovedPermanently)
	})
}

func isControl(c rune) bool {
	return c < 0x20 || c == 0x7f
}

// isValidHost accepts host, host:port and bracketed IPv6 literals without
// control characters, schemes or paths.
func isValidHost(host string) bool {
	if host == "" || strings.Contains(host, "://") || strings.HasPrefix(host, "/") {
		return false
	}
	hostPart, portStr, err := net.SplitHostPort(host)
	if err != nil {
		hostPart = host
	} else if portStr != "" {
		port, perr := strconv.Atoi(portStr)
		if perr != nil || port <= 0 || port > 65535 {
			return false
		}
	}
	if hostPart == "" || strings.ContainsFunc(hostPart, isControl) {
		return false
	}
	if strings.HasPrefix(hostPart, "[") && strings.HasSuffix(hostPart, "]") {
		ip := hostPart[1 : len(hostPart)-1]
		if i := strings.IndexByte(ip, '%'); i >= 0 {
			ip = ip[:i]
		}
		return net.ParseIP(ip) != nil
	}
	return true
}

// validateTLSFiles checks that both files exist and, outside Windows, that
// the key is not readable by group or others (errInsecureKey).
func validateTLSFiles(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			return fmt.Errorf("TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
		if f.kind == "key" && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			return fmt.Errorf("TLS key file %s has %w %o (recommended: 0600)", f.path, errInsecureKey, info.Mode().Perm())
		}
	}
	return nil
}

// waitForCert polls autocert until it holds a certificate for host, the
// timeout passes or ctx is done.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w", host, err)
		case <-ticker.C:
		}
	}
}
