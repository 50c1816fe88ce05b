package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"splitledger/internal/amqp"
	"splitledger/internal/audit"
	"splitledger/internal/config"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentRecurring,
	})
	log.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a broker the worker still materializes
	// expenses, it just publishes no events.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - ledger events will not be published")
	}

	auditWorker := audit.NewWorker(audit.NewSQLStore(repo.DB()), cfg.AuditBufferSize, logger)
	auditWorker.Start()
	defer auditWorker.Shutdown()

	ledger := services.NewLedgerService(repo, auditWorker, publisher, logger)
	processor := services.NewRecurringProcessor(repo, ledger, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Recurring expense processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// busy guards against overlapping passes when one run outlasts the
	// ticker interval.
	var busy atomic.Bool
	runPass := func(now time.Time) {
		if !busy.CompareAndSwap(false, true) {
			logger.Warn("Previous pass still running, skipping tick")
			return
		}
		defer busy.Store(false)

		res, err := processor.ProcessDue(ctx, core.DateOf(now))
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete",
			"checked", res.Checked,
			"created", res.Created,
			"failed", res.Failed)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runPass(time.Now())

		ticker := time.NewTicker(cfg.RecurringInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				runPass(now)
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped unexpectedly", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutting down recurring-worker")
}
