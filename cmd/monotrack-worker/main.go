package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monotrack/internal/amqp"
	"monotrack/internal/config"
	"monotrack/internal/export"
	"monotrack/internal/ledger"
	applog "monotrack/internal/log"
	"monotrack/internal/monobank"
	"monotrack/internal/statestore"
	"monotrack/internal/token"
	"monotrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: "worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting monotrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if len(cfg.Accounts) == 0 {
		logger.Error("No accounts configured, set ACCOUNTS")
		os.Exit(1)
	}

	var store ledger.StateStore
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := statestore.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite state store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		store = statestore.NewMemoryStore()
	}

	tokens := token.Chain{
		token.FromEnv(cfg.TokenEnvKey),
		token.FromFile(cfg.TokenFile),
	}
	source := monobank.NewClient(cfg.MonobankBaseURL, tokens)
	service := ledger.NewService(source, store, ledger.DefaultServiceConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Google Sheets archive is optional
	var exporter worker.HistoryExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsExporter, err := export.NewSheetsExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		exporter = sheetsExporter
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// AMQP is optional: without it the worker runs on its timer alone
	var publisher worker.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPEventQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	syncWorker := worker.NewSyncWorker(service, cfg.Accounts, publisher, exporter, worker.SyncWorkerConfig{
		PollInterval: cfg.SyncInterval,
	})

	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeSyncRequests(ctx, syncWorker.HandleSyncRequest); err != nil {
				if err != context.Canceled {
					logger.Error("Sync request consumption failed", "error", err)
				}
				cancel()
			}
		}()
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := syncWorker.Stop(shutdownCtx); err != nil {
		logger.Error("Sync worker shutdown error", "error", err)
	}

	logger.Info("Worker stopped gracefully")
}
