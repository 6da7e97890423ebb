package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wave-platform/internal/config"
	"wave-platform/internal/landmask"
	"wave-platform/internal/repository"
	"wave-platform/internal/scheduler"
	"wave-platform/internal/services"
	"wave-platform/internal/sources"
	"wave-platform/pkg/database"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	once := flag.Bool("once", false, "Generate a single grid and exit instead of running on the schedule")
	maskOut := flag.String("mask-out", "", "Write the land mask raster for the configured grid to this path and exit")
	noDB := flag.Bool("no-db", false, "Do not record runs in the history database")
	flag.Parse()

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
	logger := logging.NewStructuredLogger("wave-generator", version, logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	header := cfg.Grid.Header()
	logger.Info(ctx, "[WAVEGEN_START] Starting wave grid generator", logging.Fields{
		"version": version,
		"source":  cfg.Source.Kind,
		"nx":      header.Nx,
		"ny":      header.Ny,
		"output":  cfg.Output.Path,
		"once":    *once,
	})

	mask, err := landmask.Load(cfg.Mask.Shapefile)
	if err != nil {
		logger.Fatal(ctx, "[WAVEGEN_ERROR] Failed to load land mask", logging.Fields{
			"shapefile": cfg.Mask.Shapefile,
		}, err)
	}

	if *maskOut != "" {
		land, err := landmask.WriteRaster(*maskOut, header, mask)
		if err != nil {
			logger.Fatal(ctx, "[WAVEGEN_ERROR] Failed to write land mask", logging.Fields{
				"path": *maskOut,
			}, err)
		}
		logger.Info(ctx, "[WAVEGEN_MASK_WRITTEN] Land mask written", logging.Fields{
			"path":       *maskOut,
			"land_cells": land,
		})
		return
	}

	metricsCollector := metrics.NewCollector("wave_generator")

	var repo repository.RunRepository
	if !*noDB {
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[WAVEGEN_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal(ctx, "[WAVEGEN_ERROR] Failed to prepare database schema", logging.Fields{}, err)
		}
		repo = repository.NewRunRepository(db, logger, metricsCollector)
	}

	generator := services.NewGenerationService(
		newSource(cfg, mask),
		mask,
		repo,
		services.NewStatisticsService(logger, metricsCollector),
		services.GenerationConfig{
			Header:     header,
			OutputPath: cfg.Output.Path,
			Workers:    cfg.Regrid.Workers,
		},
		logger,
		metricsCollector,
	)

	sched, err := scheduler.New(cfg.Schedule, generator, logger)
	if err != nil {
		logger.Fatal(ctx, "[WAVEGEN_ERROR] Invalid schedule", logging.Fields{
			"schedule": cfg.Schedule,
		}, err)
	}

	if *once {
		if err := sched.RunOnce(ctx); err != nil {
			logger.Error(ctx, "[WAVEGEN_FAILED] Generation failed", logging.Fields{}, err)
			os.Exit(1)
		}
		return
	}

	// Serve something immediately instead of waiting for the first slot.
	if _, err := os.Stat(cfg.Output.Path); errors.Is(err, os.ErrNotExist) {
		if err := sched.RunOnce(ctx); err != nil {
			logger.Error(ctx, "[WAVEGEN_INITIAL_FAILED] Initial generation failed", logging.Fields{}, err)
		}
	}

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "[WAVEGEN_ERROR] Scheduler stopped", logging.Fields{}, err)
		os.Exit(1)
	}
}

func newSource(cfg *config.Config, mask landmask.Mask) sources.Source {
	if cfg.Source.Kind == "file" {
		return sources.NewFileSource(cfg.Source.File, cfg.Source.Window)
	}

	src := sources.NewOpenMeteoSource(mask, cfg.Source.Stride, cfg.Source.Delay)
	if cfg.Source.BaseURL != "" {
		src = src.WithBaseURL(cfg.Source.BaseURL)
	}
	return src
}
