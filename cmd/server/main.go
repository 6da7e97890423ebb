package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wave-platform/internal/config"
	"wave-platform/internal/handlers"
	"wave-platform/internal/landmask"
	"wave-platform/internal/repository"
	"wave-platform/internal/services"
	"wave-platform/internal/sources"
	"wave-platform/pkg/database"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("wave-api", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting wave platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"artifact":    cfg.Output.Path,
		"static_dir":  cfg.Server.StaticDir,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("wave_platform")

	// Initialize database
	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to prepare database schema", logging.Fields{}, err)
	}

	mask, err := landmask.Load(cfg.Mask.Shapefile)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load land mask", logging.Fields{
			"shapefile": cfg.Mask.Shapefile,
		}, err)
	}

	runRepo := repository.NewRunRepository(db, logger, metricsCollector)
	forecaster := sources.NewOpenMeteoSource(mask, 0, -1).WithBaseURL(cfg.Source.BaseURL)
	waveService := services.NewWaveService(runRepo, mask, cfg.Output.Path, logger, metricsCollector).
		WithForecaster(forecaster)
	waveHandler := handlers.NewWaveHandler(waveService, logger, metricsCollector)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(waveHandler, promhttp.Handler(), cfg.Server.StaticDir),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
