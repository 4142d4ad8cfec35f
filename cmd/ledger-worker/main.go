package main

import (
	"context"
	"os"
	"time"

	"moneytrace/internal/cli"
	"moneytrace/internal/log"
	"moneytrace/internal/services"
	"moneytrace/internal/worker"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	app, err := cli.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("Failed to bootstrap ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	reports, err := cli.NewReportSink(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report sink", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Report sink ready", "backend", cfg.ReportBackend)

	app.Caches.StartCleanup(cacheCleanupInterval)
	defer app.Caches.Stop()

	processor := services.NewRolloverProcessor(app.Service, services.RolloverProcessorConfig{
		Interval: cfg.BudgetRolloverInterval,
	})
	ledgerWorker := worker.NewLedgerWorker(app.Service, reports, logger)

	var consumer worker.EventConsumer
	if app.AMQP != nil {
		consumer = app.AMQP
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := ledgerWorker.Run(ctx, consumer, processor); err != nil {
		logger.Error("Ledger worker stopped with error", log.FieldError, err)
		app.Close()
		os.Exit(1)
	}
	if ctx.Err() != nil {
		<-done
	}
	logger.Info("Worker shutdown complete")
}
