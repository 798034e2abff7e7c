package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledgerchat/internal/amqp"
	gsheet "ledgerchat/internal/archive/google"
	"ledgerchat/internal/config"
	applog "ledgerchat/internal/log"
	"ledgerchat/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting ledgerchat-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Google Sheets archive target
	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	archiveWorker := worker.NewArchiveWorker(sheetsClient)

	// Handle shutdown signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming archive events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err = amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		archiveWorker.HandleAppendMessage, archiveWorker.HandleResetMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
