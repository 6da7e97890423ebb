// Package regrid turns scattered wave samples into a dense velocity grid.
package regrid

import (
	"context"

	"golang.org/x/sync/errgroup"

	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
)

// Options tunes the nearest-neighbour search.
type Options struct {
	// Window restricts the search to samples within this many degrees of
	// the cell on each axis. Zero searches every sample. Sources that sample
	// on a stride set this so a cell never borrows a far-away value.
	Window float64

	// Workers is the number of grid rows regridded concurrently.
	Workers int
}

// Stats counts how each cell of a grid was filled.
type Stats struct {
	Cells      int `json:"cells"`
	LandCells  int `json:"land_cells"`
	OceanCells int `json:"ocean_cells"`
	EmptyCells int `json:"empty_cells"` // ocean, but no sample in reach
	Samples    int `json:"samples"`
}

func (s *Stats) add(o Stats) {
	s.Cells += o.Cells
	s.LandCells += o.LandCells
	s.OceanCells += o.OceanCells
	s.EmptyCells += o.EmptyCells
}

// Result is a regridded grid and its fill statistics.
type Result struct {
	Grid  *models.VelocityGrid
	Stats Stats
}

// Regridder fills a target grid by nearest-neighbour lookup, zeroing land.
type Regridder struct {
	mask landmask.Mask
	opts Options
}

// New creates a regridder. A nil mask treats the whole grid as ocean.
func New(mask landmask.Mask, opts Options) *Regridder {
	if mask == nil {
		mask = landmask.Ocean
	}
	return &Regridder{mask: mask, opts: opts}
}

// Regrid runs the default pipeline: built-in land mask, unbounded search.
func Regrid(header models.VelocityGridHeader, samples []models.WaveSample) (*models.VelocityGrid, error) {
	res, err := New(landmask.NewBoxMask(), Options{}).Regrid(context.Background(), header, samples)
	if err != nil {
		return nil, err
	}
	return res.Grid, nil
}

// Regrid fills every cell of header from samples. The output depends only on
// header, the sample sequence and the options; rows may be processed in
// parallel without changing a single bit.
func (r *Regridder) Regrid(ctx context.Context, header models.VelocityGridHeader, samples []models.WaveSample) (*Result, error) {
	grid, err := models.NewVelocityGrid(header)
	if err != nil {
		return nil, err
	}

	search := newSearcher(samples, r.opts.Window)
	rowStats := make([]Stats, header.Ny)

	if r.opts.Workers <= 1 {
		for y := 0; y < header.Ny; y++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rowStats[y] = r.fillRow(grid, y, samples, search)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Workers)
		for y := 0; y < header.Ny; y++ {
			y := y
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rowStats[y] = r.fillRow(grid, y, samples, search)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	stats := Stats{Samples: len(samples)}
	for _, s := range rowStats {
		stats.add(s)
	}
	return &Result{Grid: grid, Stats: stats}, nil
}

func (r *Regridder) fillRow(grid *models.VelocityGrid, y int, samples []models.WaveSample, search searcher) Stats {
	h := grid.Header
	stats := Stats{Cells: h.Nx}

	for x := 0; x < h.Nx; x++ {
		lat, lon := h.CellCenter(y, x)
		if r.mask.IsLand(lat, lon) {
			stats.LandCells++
			continue
		}

		i, ok := search.nearest(lat, lon)
		if !ok {
			stats.EmptyCells++
			continue
		}

		s := samples[i]
		idx := h.Index(y, x)
		grid.U[idx], grid.V[idx] = ToVector(s.MeanDirection, s.SignificantHeight)
		stats.OceanCells++
	}
	return stats
}
