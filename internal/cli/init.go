// Package cli provides common initialization shared by cmd/renovo,
// cmd/renovo-worker and cmd/renovoctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"renovo/internal/analytics"
	"renovo/internal/backend"
	"renovo/internal/cache"
	"renovo/internal/config"
	"renovo/internal/log"
	"renovo/internal/services"
)

// LoadConfig loads and validates configuration. Errors are meant to end the process.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from config and makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(cfg.LoggerConfig(component))
	log.SetDefault(logger)
	return logger
}

// App is a fully wired set of services over the configured backend.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Backend  *backend.BackendResult
	Services *services.Services
	Reports  *cache.LRUCache[analytics.Report]
}

// Close releases the publisher and the store.
func (a *App) Close() error {
	return a.Services.Close()
}

// Bootstrap opens the backend and wires services. When the backend has no
// AMQP publisher, monthly budgets are recomputed inline.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	reports := cache.NewLRUCache[analytics.Report](cfg.AnalyticsCacheSize, cfg.AnalyticsCacheTTL)
	opts := services.Options{
		Store:       res.Store,
		ReportCache: reports,
		Logger:      logger,
	}
	if res.Publisher != nil {
		opts.Publisher = res.Publisher
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Backend:  res,
		Services: services.New(opts),
		Reports:  reports,
	}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownContext bounds the time spent draining after a signal.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
