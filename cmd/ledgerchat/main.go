package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/classifier"
	"ledgerchat/internal/config"
	"ledgerchat/internal/dispatch"
	apphttp "ledgerchat/internal/http"
	"ledgerchat/internal/ledger"
	"ledgerchat/internal/ledger/memory"
	applog "ledgerchat/internal/log"
	"ledgerchat/internal/storage"
	"ledgerchat/internal/view"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// Choose ledger backend
	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("Initialized sqlite backend", applog.FieldBackend, cfg.DataBackend, "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Initialized memory backend", applog.FieldBackend, cfg.DataBackend)
	}

	// Choose classifier backend
	var cl classifier.Classifier
	switch cfg.ClassifierBackend {
	case "http":
		cl = classifier.NewHTTPClient(cfg.ClassifierURL)
		logger.Info("Initialized http classifier", "url", cfg.ClassifierURL)
	default:
		cl = classifier.NewRulesFromFile(cfg.PatternsPath)
		logger.Info("Initialized rules classifier", "patterns", cfg.PatternsPath)
	}

	// Optional archive event publisher
	var events dispatch.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("Archive event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Archive event publishing disabled - no AMQP_URL provided")
	}

	coordinator := view.NewCoordinator(store)
	dispatcher := dispatch.New(cl, store, coordinator, events, cfg.AlertThresholdCents)

	srv := apphttp.NewServer(":"+cfg.Port, dispatcher, coordinator)
	coordinator.AddRenderer(srv)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coordinator.Start(ctx); err != nil {
		logger.Error("Failed to start view coordinator", applog.FieldError, err)
		os.Exit(1)
	}
	defer coordinator.Close()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		srv.CloseClients()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting ledgerchat server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
