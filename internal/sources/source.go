// Package sources supplies wave samples to the regridding pipeline.
//
// A Source returns either a complete sample set or an error; the pipeline
// never regrids a partial acquisition.
package sources

import (
	"context"
	"time"

	"wave-platform/internal/models"
)

// Source acquires the wave samples used to fill a target grid.
type Source interface {
	// Name identifies the source in logs, metrics and run history.
	Name() string

	// Samples returns the samples for the grid described by header.
	Samples(ctx context.Context, header models.VelocityGridHeader) ([]models.WaveSample, error)

	// Window is the nearest-neighbour search half-width, in degrees, that
	// suits this source's sample density on header. Zero means unbounded.
	Window(header models.VelocityGridHeader) float64
}

// Timed is implemented by sources that know when their most recent samples
// were valid. The second result is false when no time was reported.
type Timed interface {
	ValidTime() (time.Time, bool)
}
