package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	grpcapi "github.com/toolsascode/shift/internal/api/grpc"
	httpapi "github.com/toolsascode/shift/internal/api/http"
	"github.com/toolsascode/shift/internal/app"
	"github.com/toolsascode/shift/internal/auth"
	"github.com/toolsascode/shift/internal/config"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/queue"
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
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logger.Info("Initializing shift server...")

	a, err := app.New(cfg, app.Options{Watch: true})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize queue if enabled
	var producer queue.Producer
	var results *worker.Results
	var w *worker.Worker
	if cfg.Queue.Enabled {
		q, err := queuefactory.NewQueue(&cfg.Queue.QueueConfig)
		if err != nil {
			logger.Fatalf("Failed to create queue: %v", err)
		}
		producer = q
		logger.Info("Queue enabled - apply requests may be queued for async execution")

		if cfg.Server.RunWorker {
			results = worker.NewResults()
			w = worker.NewWorker(a.Migrator, q, results, a.Metrics)
			go func() {
				if err := w.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Errorf("Worker error: %v", err)
				}
			}()
		} else {
			defer func() { _ = q.Close() }()
		}
	}

	// Initialize HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Custom logger middleware that skips health check endpoints
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.Path == "/health" || param.Path == "/api/v1/health" || param.Path == "/metrics" {
			return ""
		}
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.StatusCode,
			param.Latency,
			param.ClientIP,
			param.Method,
			param.Path,
		)
	}))
	router.Use(gin.Recovery())

	// Add CORS middleware - must be before routes
	router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, X-Client-Type, X-Executed-By")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	httpHandler := httpapi.NewHandler(httpapi.Config{
		Migrator:    a.Migrator,
		Registry:    a.Registry,
		Loader:      a.Loader,
		Producer:    producer,
		Results:     results,
		Auth:        auth.NewTokenValidator(cfg.Server.APIToken),
		Metrics:     a.Metrics,
		HealthCheck: a.HealthCheck,
	})
	httpHandler.RegisterRoutes(router)

	// Add /health endpoint to prevent 404s (uses same handler as /api/v1/health)
	router.GET("/health", httpHandler.Health)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting HTTP server on port %s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Start gRPC health server
	grpcServer := grpcapi.NewServer(a.HealthCheck, 0)
	grpcListener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		logger.Fatalf("Failed to listen on gRPC port %s: %v", cfg.Server.GRPCPort, err)
	}

	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Fatalf("Failed to start gRPC server: %v", err)
		}
	}()

	logger.Info("shift server started successfully")
	logger.Infof("HTTP API available at http://localhost:%s", cfg.Server.HTTPPort)
	logger.Infof("gRPC health available at localhost:%s", cfg.Server.GRPCPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}
	grpcServer.Stop()

	if w != nil {
		if err := w.Stop(); err != nil {
			logger.Errorf("Error stopping worker: %v", err)
		}
	}
	cancel()

	logger.Info("Servers exited")
}
