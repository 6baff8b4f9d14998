package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"renovo/internal/cache"
	"renovo/internal/cli"
	"renovo/internal/log"
	"renovo/internal/sheets"
	"renovo/internal/sheets/google"
	"renovo/internal/worker"
)

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
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	if cfg.AMQPURL == "" {
		logger.Error("The worker needs AMQP_URL")
		return 1
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Close failed", log.FieldError, err)
		}
	}()

	consumer := app.Backend.Publisher
	if consumer == nil {
		logger.Error("AMQP broker unreachable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return 1
	}

	var mirror sheets.Mirror
	if cfg.MirrorEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			return 1
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled")
	}

	budgets := worker.NewBudgetWorker(app.Services.Budgets, app.Services.Expenses, mirror, logger)
	reconciler := worker.NewReconciler(app.Services.Budgets, cfg.SyncInterval, logger)

	caches := cache.NewManager(logger)
	caches.Register(app.Reports)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx, budgets.Handle)
	})
	g.Go(func() error {
		if err := reconciler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, stopCancel := cli.ShutdownContext(30 * time.Second)
		defer stopCancel()
		return reconciler.Stop(stopCtx)
	})
	g.Go(func() error {
		caches.Start(gctx, time.Minute)
		caches.Wait()
		return nil
	})

	logger.Info("Starting renovo worker",
		"backend", cfg.DataBackend,
		"queue", cfg.AMQPQueue,
		"reconcile_interval", cfg.SyncInterval)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		return 1
	}
	logger.Info("Worker stopped gracefully")
	return 0
}
