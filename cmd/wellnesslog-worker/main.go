package main

import (
	"context"
	"errors"
	"os"

	"wellnesslog/internal/cli"
	"wellnesslog/internal/config"
	applog "wellnesslog/internal/log"
	"wellnesslog/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info").Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)
	logger.Info("Starting wellnesslog-worker", "chart_dir", cfg.ChartDir)

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process; the worker will only ever render empty logs")
	}

	app, err := cli.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	charts := worker.NewChartWorker(app.Entries, cfg.ChartDir, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	// Catch up on anything written while the worker was down.
	if err := charts.RenderAll(ctx); err != nil {
		logger.Error("Startup render failed", applog.FieldError, err)
	}

	go charts.Run(ctx, cfg.RefreshInterval)

	if events := app.Backend.Events; events != nil {
		go func() {
			err := events.ConsumeEntryEvents(ctx, charts.HandleEntryEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", applog.FieldError, err, applog.FieldOperation, applog.OpConsume)
			}
		}()
	} else {
		logger.Info("Events disabled, relying on periodic refresh", "interval", cfg.RefreshInterval)
	}

	if cfg.DataBackend == config.BackendFile {
		watcher, err := worker.NewDirWatcher(cfg.DataDir, charts, logger)
		if err != nil {
			logger.Error("Failed to watch data directory", applog.FieldError, err, "dir", cfg.DataDir)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Data directory watch stopped", applog.FieldError, err)
				}
			}()
		}
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
