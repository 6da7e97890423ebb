package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"wave-platform/internal/models"
	"wave-platform/pkg/database"
	"wave-platform/pkg/logging"
	"wave-platform/pkg/metrics"
)

// RunRepository provides data access for grid generation history
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.GridRun) error
	GetRun(ctx context.Context, id int64) (*models.GridRun, error)
	GetLatestRun(ctx context.Context) (*models.GridRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.GridRun, int, error)

	HealthCheck(ctx context.Context) error
}

// RunFilter defines filters for listing runs
type RunFilter struct {
	Source *string
	Limit  int
	Offset int
}

type runRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RunRepository {
	return &runRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const runColumns = `id, cycle_time, source, nx, ny, dx, dy, sample_count,
	land_cells, ocean_cells, empty_cells, max_height_m, mean_height_m,
	output_path, duration_ms, created_at`

// CreateRun inserts run and fills in its ID and CreatedAt
func (r *runRepository) CreateRun(ctx context.Context, run *models.GridRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO grid_runs (
			cycle_time, source, nx, ny, dx, dy, sample_count,
			land_cells, ocean_cells, empty_cells, max_height_m, mean_height_m,
			output_path, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, "insert_run", &id, query,
		run.CycleTime.UTC(),
		run.Source,
		run.Nx,
		run.Ny,
		run.Dx,
		run.Dy,
		run.SampleCount,
		run.LandCells,
		run.OceanCells,
		run.EmptyCells,
		run.MaxHeightM,
		run.MeanHeightM,
		run.OutputPath,
		run.DurationMs,
		run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	run.ID = id

	r.logger.Debug(ctx, "[REPO_CREATE_RUN] Run recorded", logging.Fields{
		"run_id": run.ID,
		"source": run.Source,
		"cycle":  run.CycleTime.Format(time.RFC3339),
	})

	return nil
}

// GetRun retrieves a run by ID
func (r *runRepository) GetRun(ctx context.Context, id int64) (*models.GridRun, error) {
	query := `SELECT ` + runColumns + ` FROM grid_runs WHERE id = ?`

	var run models.GridRun
	err := r.db.GetContext(ctx, "get_run", &run, query, id)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "grid_run",
			ID:       strconv.FormatInt(id, 10),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// GetLatestRun retrieves the most recently recorded run
func (r *runRepository) GetLatestRun(ctx context.Context) (*models.GridRun, error) {
	query := `SELECT ` + runColumns + ` FROM grid_runs ORDER BY id DESC LIMIT 1`

	var run models.GridRun
	err := r.db.GetContext(ctx, "get_latest_run", &run, query)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "grid_run",
			ID:       "latest",
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// ListRuns returns runs newest first along with the total matching count
func (r *runRepository) ListRuns(ctx context.Context, filter RunFilter) ([]*models.GridRun, int, error) {
	where := ""
	var args []interface{}
	if filter.Source != nil {
		where = " WHERE source = ?"
		args = append(args, *filter.Source)
	}

	var total int
	if err := r.db.GetContext(ctx, "count_runs", &total, `SELECT COUNT(*) FROM grid_runs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM grid_runs` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	runs := []*models.GridRun{}
	if err := r.db.SelectContext(ctx, "list_runs", &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, total, nil
}

// HealthCheck checks database connectivity
func (r *runRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
