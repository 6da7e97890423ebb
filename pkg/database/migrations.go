package database

import (
	"context"
	"fmt"
	"strings"

	"wave-platform/pkg/logging"
)

// Migration is one schema step with driver-specific DDL.
type Migration struct {
	Version int
	Name    string
	Up      map[string]string
	Down    map[string]string
}

// Migrations lists every schema step in order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_grid_runs",
		Up: map[string]string{
			DriverPostgres: `
				CREATE TABLE IF NOT EXISTS grid_runs (
					id            BIGSERIAL PRIMARY KEY,
					cycle_time    TIMESTAMPTZ NOT NULL,
					source        TEXT NOT NULL,
					nx            INTEGER NOT NULL,
					ny            INTEGER NOT NULL,
					dx            DOUBLE PRECISION NOT NULL,
					dy            DOUBLE PRECISION NOT NULL,
					sample_count  INTEGER NOT NULL,
					land_cells    INTEGER NOT NULL,
					ocean_cells   INTEGER NOT NULL,
					empty_cells   INTEGER NOT NULL,
					max_height_m  DOUBLE PRECISION NOT NULL,
					mean_height_m DOUBLE PRECISION NOT NULL,
					output_path   TEXT NOT NULL,
					duration_ms   BIGINT NOT NULL,
					created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_grid_runs_cycle_time ON grid_runs (cycle_time DESC);`,
			DriverSQLite: `
				CREATE TABLE IF NOT EXISTS grid_runs (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					cycle_time    DATETIME NOT NULL,
					source        TEXT NOT NULL,
					nx            INTEGER NOT NULL,
					ny            INTEGER NOT NULL,
					dx            REAL NOT NULL,
					dy            REAL NOT NULL,
					sample_count  INTEGER NOT NULL,
					land_cells    INTEGER NOT NULL,
					ocean_cells   INTEGER NOT NULL,
					empty_cells   INTEGER NOT NULL,
					max_height_m  REAL NOT NULL,
					mean_height_m REAL NOT NULL,
					output_path   TEXT NOT NULL,
					duration_ms   INTEGER NOT NULL,
					created_at    DATETIME NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_grid_runs_cycle_time ON grid_runs (cycle_time DESC);`,
		},
		Down: map[string]string{
			DriverPostgres: `DROP TABLE IF EXISTS grid_runs;`,
			DriverSQLite:   `DROP TABLE IF EXISTS grid_runs;`,
		},
	},
}

// Migrate applies every migration in the given direction ("up" or "down").
// Each statement is idempotent, so running "up" twice is harmless.
func (d *DB) Migrate(ctx context.Context, direction string) error {
	steps := make([]Migration, len(Migrations))
	copy(steps, Migrations)

	switch direction {
	case "up":
	case "down":
		for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
			steps[i], steps[j] = steps[j], steps[i]
		}
	default:
		return fmt.Errorf("unknown migration direction %q (want up or down)", direction)
	}

	tx, err := d.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range steps {
		ddl := m.Up[d.config.Driver]
		if direction == "down" {
			ddl = m.Down[d.config.Driver]
		}
		if strings.TrimSpace(ddl) == "" {
			return fmt.Errorf("migration %03d_%s has no %s statement for %s", m.Version, m.Name, direction, d.config.Driver)
		}

		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			d.metrics.RecordDBError("migration_error")
			return fmt.Errorf("migration %03d_%s %s: %w", m.Version, m.Name, direction, err)
		}

		d.logger.Info(ctx, "[DB_MIGRATE] Migration applied", logging.Fields{
			"version":   m.Version,
			"name":      m.Name,
			"direction": direction,
			"driver":    d.config.Driver,
		})
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// EnsureSchema creates any missing tables.
func (d *DB) EnsureSchema(ctx context.Context) error {
	return d.Migrate(ctx, "up")
}
