// Package cli provides the process bootstrap shared by cmd/moneytrace and
// cmd/ledger-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneytrace/internal/amqp"
	"moneytrace/internal/backend"
	"moneytrace/internal/cache"
	"moneytrace/internal/config"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/services"
	"moneytrace/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger installs the process logger described by cfg.
func SetupLogger(cfg *config.Config) *log.Logger {
	return log.Setup(cfg.LogLevel, cfg.LogFormat)
}

// App holds the wired ledger for one process.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Repo       *storage.SQLiteRepository
	Dispatcher *events.Dispatcher
	Service    *services.Service
	Categories *cache.CategoryTypes
	Caches     *cache.Manager
	// AMQP is nil when AMQP_URL is empty.
	AMQP *amqp.Client
}

// Bootstrap opens the database, builds the service and, when configured,
// forwards every committed event to the broker.
func Bootstrap(cfg *config.Config, logger *log.Logger) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository at %s: %w", cfg.SQLiteDBPath, err)
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Repo:       repo,
		Dispatcher: events.NewDispatcher(logger),
		Categories: cache.NewCategoryTypes(cfg.CategoryCacheSize, cfg.CategoryCacheTTL),
		Caches:     cache.NewManager(logger),
	}
	app.Caches.Register(app.Categories)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger, amqp.LedgerRoutingKeys()...)
		if err != nil {
			// The ledger keeps working without the broker; reports then
			// only refresh through the rollover job.
			logger.Warn("Failed to initialize AMQP client, events will not be published", log.FieldError, err)
		} else {
			app.AMQP = client
			app.Dispatcher.Subscribe(client.Forward)
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - committed events stay in process")
	}

	app.Service = services.New(repo, app.Dispatcher, services.Options{
		Retry:         services.RetryOptions{MaxAttempts: cfg.BalanceRetryAttempts},
		CategoryCache: app.Categories,
		Logger:        logger,
	})
	return app, nil
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	errs = append(errs, a.Repo.Close())
	return errors.Join(errs...)
}

// NewReportSink returns the report backend selected by REPORT_BACKEND.
func NewReportSink(ctx context.Context, cfg *config.Config, logger *log.Logger) (backend.Backend, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}
