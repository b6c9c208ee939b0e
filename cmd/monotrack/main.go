package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"monotrack/internal/amqp"
	"monotrack/internal/config"
	apphttp "monotrack/internal/http"
	"monotrack/internal/ledger"
	applog "monotrack/internal/log"
	"monotrack/internal/monobank"
	"monotrack/internal/statestore"
	"monotrack/internal/token"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: "api",
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = statestore.NewMemoryStore()
		logger.Info("Initialized memory backend")
	}

	tokens := token.Chain{
		token.FromEnv(cfg.TokenEnvKey),
		token.FromFile(cfg.TokenFile),
	}
	source := monobank.NewClient(cfg.MonobankBaseURL, tokens)

	service := ledger.NewService(source, store, ledger.DefaultServiceConfig())

	srv := apphttp.NewServer(":"+cfg.Port, service, store)

	// With a broker configured, expose the async sync trigger
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPEventQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		srv.SetSyncRequestPublisher(amqpClient)
		logger.Info("Async sync requests enabled", "queue", cfg.AMQPRequestQueue)
	}

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting monotrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
