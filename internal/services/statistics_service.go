package services

import (
	"context"
	"time"

	"wave-platform/internal/models"
	"wave-platform/internal/regrid"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

// StatisticsService summarises generated grids
type StatisticsService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// GridSummary describes the wave heights implied by a velocity grid.
// Zero vectors (land, calm sea and cells without a sample) are excluded.
type GridSummary struct {
	Cells        int     `json:"cells"`
	NonZeroCells int     `json:"non_zero_cells"`
	MaxHeightM   float64 `json:"max_height_m"`
	MeanHeightM  float64 `json:"mean_height_m"`
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Summarize computes max and mean significant height over non-zero cells
func (s *StatisticsService) Summarize(ctx context.Context, grid *models.VelocityGrid) GridSummary {
	startTime := time.Now()

	summary := GridSummary{Cells: len(grid.U)}
	var total float64
	for i := range grid.U {
		_, h := regrid.FromVector(grid.U[i], grid.V[i])
		if h == 0 {
			continue
		}
		summary.NonZeroCells++
		total += h
		if h > summary.MaxHeightM {
			summary.MaxHeightM = h
		}
	}
	if summary.NonZeroCells > 0 {
		summary.MeanHeightM = total / float64(summary.NonZeroCells)
	}

	s.metrics.GridMaxHeight.Set(summary.MaxHeightM)

	s.logger.Debug(ctx, "[STATS_SUMMARY] Grid summarised", logging.Fields{
		"cells":          summary.Cells,
		"non_zero_cells": summary.NonZeroCells,
		"max_height_m":   summary.MaxHeightM,
		"mean_height_m":  summary.MeanHeightM,
		"duration_ms":    time.Since(startTime).Milliseconds(),
	})

	return summary
}
