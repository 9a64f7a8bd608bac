package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolsascode/shift/internal/app"
	"github.com/toolsascode/shift/internal/config"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/queuefactory"
	"github.com/toolsascode/shift/internal/worker"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHIFT_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Check if queue is enabled
	if !cfg.Queue.Enabled {
		logger.Fatalf("Queue is not enabled. Set SHIFT_QUEUE_ENABLED=true to use the worker")
	}
	if cfg.Queue.Type == "memory" {
		logger.Fatalf("The memory queue only works inside the server; set SHIFT_RUN_WORKER=true there instead")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	a, err := app.New(cfg, app.Options{Watch: true})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer func() { _ = a.Close() }()

	// Create queue
	q, err := queuefactory.NewQueue(&cfg.Queue.QueueConfig)
	if err != nil {
		logger.Fatalf("Failed to create queue: %v", err)
	}

	// Create worker
	w := worker.NewWorker(a.Migrator, q, nil, a.Metrics)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start worker in goroutine
	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Worker error: %v", err)
			cancel()
		}
	}()

	logger.Info("Migration worker started. Press Ctrl+C to stop.")

	// Wait for signal or worker failure
	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	logger.Info("Shutting down worker...")

	cancel()
	if err := w.Stop(); err != nil {
		logger.Errorf("Error stopping worker: %v", err)
	}

	logger.Info("Worker stopped")
}
