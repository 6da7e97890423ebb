package services

import (
	"context"
	"fmt"
	"time"

	"wave-platform/internal/cycle"
	"wave-platform/internal/encoder"
	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
	"wave-platform/internal/regrid"
	"wave-platform/internal/repository"
	"wave-platform/internal/sources"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

// GenerationConfig describes what a generation run produces
type GenerationConfig struct {
	Header     models.VelocityGridHeader
	OutputPath string
	Workers    int
}

// GenerationService runs the acquire, regrid, encode pipeline
type GenerationService struct {
	source sources.Source
	mask   landmask.Mask
	repo   repository.RunRepository
	stats  *StatisticsService
	config GenerationConfig

	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewGenerationService creates a new generation service. repo may be nil, in
// which case runs are not recorded.
func NewGenerationService(
	source sources.Source,
	mask landmask.Mask,
	repo repository.RunRepository,
	stats *StatisticsService,
	cfg GenerationConfig,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *GenerationService {
	return &GenerationService{
		source:  source,
		mask:    mask,
		repo:    repo,
		stats:   stats,
		config:  cfg,
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// Generate performs one run. The artifact is only replaced when every stage
// before the write succeeded.
func (s *GenerationService) Generate(ctx context.Context) (*models.GridRun, error) {
	startTime := s.now()
	header := s.config.Header
	sourceName := s.source.Name()
	cycleTime := cycle.Latest(startTime)

	s.logger.Info(ctx, "[GENERATE_START] Starting grid generation", logging.Fields{
		"source": sourceName,
		"cycle":  cycle.Label(cycleTime),
		"nx":     header.Nx,
		"ny":     header.Ny,
		"dx":     header.Dx,
		"dy":     header.Dy,
		"stage":  "INITIALIZATION",
	})

	if err := header.Validate(); err != nil {
		s.fail(ctx, sourceName, "INITIALIZATION", err)
		return nil, err
	}

	samples, err := s.source.Samples(ctx, header)
	if err != nil {
		s.metrics.RecordSourceError(sourceName)
		s.fail(ctx, sourceName, "ACQUISITION", err)
		return nil, fmt.Errorf("acquire samples from %s: %w", sourceName, err)
	}
	s.metrics.SamplesAcquired.Observe(float64(len(samples)))

	s.logger.Info(ctx, "[GENERATE_SAMPLES] Samples acquired", logging.Fields{
		"source":       sourceName,
		"sample_count": len(samples),
		"stage":        "ACQUISITION",
	})

	opts := regrid.Options{Window: s.source.Window(header), Workers: s.config.Workers}
	timer := s.metrics.NewTimer(s.metrics.RegridDuration)
	result, err := regrid.New(s.mask, opts).Regrid(ctx, header, samples)
	regridDuration := timer.ObserveDuration()
	if err != nil {
		s.fail(ctx, sourceName, "REGRID", err)
		return nil, fmt.Errorf("regrid: %w", err)
	}
	// refTime is only emitted when the source dates its data.
	if timed, ok := s.source.(sources.Timed); ok {
		if validTime, ok := timed.ValidTime(); ok {
			result.Grid.RefTime = &validTime
		}
	}

	s.logger.Info(ctx, "[REGRID_COMPLETE] Grid filled", logging.Fields{
		"land_cells":  result.Stats.LandCells,
		"ocean_cells": result.Stats.OceanCells,
		"empty_cells": result.Stats.EmptyCells,
		"window_deg":  opts.Window,
		"workers":     opts.Workers,
		"duration_ms": regridDuration.Milliseconds(),
		"stage":       "REGRID",
	})

	summary := s.stats.Summarize(ctx, result.Grid)

	written, err := encoder.WriteFile(s.config.OutputPath, result.Grid)
	if err != nil {
		s.fail(ctx, sourceName, "ENCODE", err)
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	run := &models.GridRun{
		CycleTime:   cycleTime,
		Source:      sourceName,
		Nx:          header.Nx,
		Ny:          header.Ny,
		Dx:          header.Dx,
		Dy:          header.Dy,
		SampleCount: len(samples),
		LandCells:   result.Stats.LandCells,
		OceanCells:  result.Stats.OceanCells,
		EmptyCells:  result.Stats.EmptyCells,
		MaxHeightM:  summary.MaxHeightM,
		MeanHeightM: summary.MeanHeightM,
		OutputPath:  s.config.OutputPath,
		DurationMs:  s.now().Sub(startTime).Milliseconds(),
	}

	// The artifact is already in place; a history failure does not undo it.
	if s.repo != nil {
		if err := s.repo.CreateRun(ctx, run); err != nil {
			s.logger.Error(ctx, "[GENERATE_RECORD_ERROR] Failed to record run", logging.Fields{
				"source": sourceName,
				"stage":  "RECORD",
			}, err)
		}
	}

	s.metrics.UpdateGridCells(result.Stats.LandCells, result.Stats.OceanCells, result.Stats.EmptyCells)
	s.metrics.ArtifactBytes.Set(float64(written))
	s.metrics.GenerationDuration.Observe(s.now().Sub(startTime).Seconds())
	s.metrics.RecordGeneration(sourceName, "success")

	s.logger.Info(ctx, "[GENERATE_COMPLETE] Grid generation completed", logging.Fields{
		"run_id":        run.ID,
		"source":        sourceName,
		"cycle":         cycle.Label(cycleTime),
		"output_path":   s.config.OutputPath,
		"bytes":         written,
		"max_height_m":  summary.MaxHeightM,
		"mean_height_m": summary.MeanHeightM,
		"duration_ms":   run.DurationMs,
		"stage":         "COMPLETE",
	})

	return run, nil
}

func (s *GenerationService) fail(ctx context.Context, source, stage string, err error) {
	s.metrics.RecordGeneration(source, "failed")
	s.logger.Error(ctx, "[GENERATE_ERROR] Grid generation failed", logging.Fields{
		"source": source,
		"stage":  stage,
	}, err)
}
