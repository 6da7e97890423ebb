package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"wave-platform/internal/encoder"
	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
	"wave-platform/internal/regrid"
	"wave-platform/internal/repository"
	"wave-platform/internal/sources"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

// ErrNoArtifact is returned when no velocity artifact has been written yet.
var ErrNoArtifact = errors.New("no wave artifact has been generated")

// ErrNoForecaster is returned by Forecast when no forecast provider is set.
var ErrNoForecaster = errors.New("point forecasts are not configured")

// DefaultForecastDays is the forecast length used when none is requested.
const DefaultForecastDays = 10

// Forecaster fetches a daily forecast for a single point.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64, days int) ([]models.ForecastDay, error)
}

// WaveService serves generated artifacts and run history
type WaveService struct {
	repo       repository.RunRepository
	mask       landmask.Mask
	outputPath string
	forecaster Forecaster
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector

	mu      sync.Mutex
	cached  *models.VelocityGrid
	modTime time.Time
}

// PointReading is the grid value nearest to a requested coordinate.
type PointReading struct {
	Latitude     float64    `json:"lat"`
	Longitude    float64    `json:"lon"`
	CellLat      float64    `json:"cell_lat"`
	CellLon      float64    `json:"cell_lon"`
	U            float64    `json:"u"`
	V            float64    `json:"v"`
	HeightM      float64    `json:"height_m"`
	DirectionDeg float64    `json:"direction_deg"`
	Land         bool       `json:"land"`
	RefTime      *time.Time `json:"ref_time,omitempty"`
}

// PointForecast is a daily forecast for one coordinate.
type PointForecast struct {
	Latitude  float64              `json:"lat"`
	Longitude float64              `json:"lon"`
	Days      []models.ForecastDay `json:"forecast"`
}

// NewWaveService creates a new wave service
func NewWaveService(repo repository.RunRepository, mask landmask.Mask, outputPath string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WaveService {
	if mask == nil {
		mask = landmask.Ocean
	}
	return &WaveService{
		repo:       repo,
		mask:       mask,
		outputPath: outputPath,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// WithForecaster enables Forecast.
func (s *WaveService) WithForecaster(f Forecaster) *WaveService {
	s.forecaster = f
	return s
}

// LatestRun returns the most recent generation run
func (s *WaveService) LatestRun(ctx context.Context) (*models.GridRun, error) {
	return s.repo.GetLatestRun(ctx)
}

// GetRun returns a run by ID
func (s *WaveService) GetRun(ctx context.Context, id int64) (*models.GridRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns run history newest first
func (s *WaveService) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*models.GridRun, int, error) {
	return s.repo.ListRuns(ctx, filter)
}

// HealthCheck checks the run history store
func (s *WaveService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

// Artifact returns the raw encoded artifact
func (s *WaveService) Artifact(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.outputPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// grid returns the decoded artifact, re-reading it only when the file changed
func (s *WaveService) grid(ctx context.Context) (*models.VelocityGrid, error) {
	info, err := os.Stat(s.outputPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && info.ModTime().Equal(s.modTime) {
		return s.cached, nil
	}

	data, err := s.Artifact(ctx)
	if err != nil {
		return nil, err
	}
	grid, err := encoder.Decode(data)
	if err != nil {
		return nil, err
	}

	s.cached, s.modTime = grid, info.ModTime()
	s.logger.Debug(ctx, "[WAVE_ARTIFACT_LOADED] Artifact decoded", logging.Fields{
		"path": s.outputPath,
		"nx":   grid.Header.Nx,
		"ny":   grid.Header.Ny,
	})
	return grid, nil
}

// PointAt looks up the cell containing (lat, lon) in the current artifact
// and converts its vector back to a height and direction.
func (s *WaveService) PointAt(ctx context.Context, lat, lon float64) (*PointReading, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return nil, err
	}

	grid, err := s.grid(ctx)
	if err != nil {
		return nil, err
	}

	y, x, ok := cellIndex(grid.Header, lat, lon)
	if !ok {
		return nil, &models.ValidationError{
			Field:   "lat,lon",
			Value:   fmt.Sprintf("%g,%g", lat, lon),
			Message: "coordinate is outside the generated grid",
		}
	}

	u, v := grid.At(y, x)
	direction, height := regrid.FromVector(u, v)
	cellLat, cellLon := grid.Header.CellCenter(y, x)

	return &PointReading{
		Latitude:     lat,
		Longitude:    lon,
		CellLat:      cellLat,
		CellLon:      cellLon,
		U:            u,
		V:            v,
		HeightM:      height,
		DirectionDeg: direction,
		Land:         s.mask.IsLand(cellLat, cellLon),
		RefTime:      grid.RefTime,
	}, nil
}

// Forecast returns a daily forecast for (lat, lon). days of 0 selects
// DefaultForecastDays.
func (s *WaveService) Forecast(ctx context.Context, lat, lon float64, days int) (*PointForecast, error) {
	if err := validateCoordinate(lat, lon); err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultForecastDays
	}
	if days < 1 || days > sources.MaxForecastDays {
		return nil, &models.ValidationError{
			Field:   "days",
			Value:   strconv.Itoa(days),
			Message: fmt.Sprintf("days must be between 1 and %d", sources.MaxForecastDays),
		}
	}
	if s.forecaster == nil {
		return nil, ErrNoForecaster
	}

	forecast, err := s.forecaster.Forecast(ctx, lat, lon, days)
	if err != nil {
		s.metrics.RecordSourceError("forecast")
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	s.logger.Debug(ctx, "[WAVE_FORECAST] Point forecast fetched", logging.Fields{
		"lat":       lat,
		"lon":       lon,
		"requested": days,
		"returned":  len(forecast),
	})
	return &PointForecast{Latitude: lat, Longitude: lon, Days: forecast}, nil
}

func validateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &models.ValidationError{
			Field:   "lat",
			Value:   strconv.FormatFloat(lat, 'g', -1, 64),
			Message: "lat must be between -90 and 90",
		}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return &models.ValidationError{
			Field:   "lon",
			Value:   strconv.FormatFloat(lon, 'g', -1, 64),
			Message: "lon must be a finite number",
		}
	}
	return nil
}

// cellIndex finds the nearest cell to (lat, lon). Longitude is measured
// eastward from lo1 around the circle, so both conventions work.
func cellIndex(h models.VelocityGridHeader, lat, lon float64) (y, x int, ok bool) {
	if h.Dx <= 0 || h.Dy <= 0 {
		return 0, 0, false
	}

	y = int(math.Round((h.La1 - lat) / h.Dy))
	if y < 0 || y >= h.Ny {
		return 0, 0, false
	}

	offset := math.Mod(lon-h.Lo1, 360)
	if offset < 0 {
		offset += 360
	}
	x = int(math.Round(offset / h.Dx))

	global := float64(h.Nx)*h.Dx >= 360-1e-9
	switch {
	case x < h.Nx:
	case global:
		x %= h.Nx
	default:
		// Within half a cell west of lo1 still belongs to the first column.
		if 360-offset <= h.Dx/2 {
			x = 0
		} else {
			return 0, 0, false
		}
	}
	return y, x, true
}
