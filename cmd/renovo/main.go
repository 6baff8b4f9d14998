package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"renovo/internal/amqp"
	"renovo/internal/cache"
	"renovo/internal/cli"
	apphttp "renovo/internal/http"
	"renovo/internal/log"
	"renovo/internal/services"
)

var _ services.EventPublisher = (*amqp.Client)(nil)

// closeApp is replaced in tests to observe shutdown.
var closeApp = (*cli.App).Close

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs on every path.
func run() int {
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration error", log.FieldError, err)
		return 1
	}
	logger := cli.SetupLogger(cfg, log.ComponentHTTP)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if err := closeApp(app); err != nil {
			logger.Error("Close failed", log.FieldError, err)
		}
	}()

	caches := cache.NewManager(logger)
	caches.Register(app.Reports)
	caches.Start(ctx, time.Minute)

	srv, err := apphttp.NewServer(cfg.Addr(), app.Services, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build server", log.FieldError, err)
		return 1
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting renovo server",
		"addr", cfg.Addr(),
		"backend", cfg.DataBackend,
		"async_budgets", app.Backend.Publisher != nil,
		"operations", len(srv.Operations()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		cancel()
		caches.Wait()
		return 1
	}

	caches.Wait()
	logger.Info("Server stopped gracefully")
	return 0
}
