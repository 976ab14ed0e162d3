// app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/mailcheck/config"
	"github.com/dalemusser/mailcheck/httputil"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/metrics"
	"github.com/dalemusser/mailcheck/server"
	"go.uber.org/zap"
)

// Hooks are the steps a service plugs into Run. D is whatever Connect
// builds (resolvers, caches, clients) and BuildHandler consumes.
type Hooks[D any] struct {
	// Name is used for logging only.
	Name string

	// LoadConfig typically wraps config.Load.
	LoadConfig func(logger *zap.Logger) (*config.Config, error)

	// Connect opens backends. Optional.
	Connect func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (D, error)

	// Close releases what Connect opened. Optional.
	Close func(deps D) error

	// BuildHandler returns the complete HTTP handler.
	BuildHandler func(cfg *config.Config, deps D, logger *zap.Logger) (http.Handler, error)
}

// Run is the startup sequence of a mailcheck service:
//
//  1. bootstrap logger, config, final logger
//  2. metrics registration
//  3. Connect
//  4. signal handling
//  5. BuildHandler and serve until ctx is done or a signal arrives
//
// It returns instead of exiting so a service manager can report the error.
func Run[D any](ctx context.Context, hooks Hooks[D]) error {
	bootstrap := logging.BootstrapLogger()
	defer func() { _ = bootstrap.Sync() }()

	cfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}
	bootstrap.Info("config loaded", zap.String("env", cfg.Env), zap.String("log_level", cfg.LogLevel))

	logger, err := logging.BuildLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("logger initialized", zap.String("app", hooks.Name))
	logger.Debug("effective config", zap.String("config", cfg.Dump()))

	httputil.SetLogger(logger)
	metrics.RegisterDefault(logger)

	var deps D
	if hooks.Connect != nil {
		deps, err = hooks.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("connect failed", zap.Error(err))
			return fmt.Errorf("connect: %w", err)
		}
	}
	if hooks.Close != nil {
		defer func() {
			if err := hooks.Close(deps); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}()
	}

	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	handler, err := hooks.BuildHandler(cfg, deps, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	if err := server.ListenAndServeWithContext(ctx, cfg, handler, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
