package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// WaveSample is a single wave observation supplied by a sample source.
// Longitude may use either the [0,360) or the [-180,180] convention.
type WaveSample struct {
	Latitude          float64 `json:"lat"`
	Longitude         float64 `json:"lon"`
	SignificantHeight float64 `json:"height"`    // meters
	MeanDirection     float64 `json:"direction"` // degrees, meteorological "from"
	MeanPeriod        float64 `json:"period,omitempty"`
}

// VelocityGridHeader describes a regular lat/lon grid.
// Cells are ordered row-major: rows north to south, columns west to east.
type VelocityGridHeader struct {
	Dx  float64 `json:"dx"`
	Dy  float64 `json:"dy"`
	Nx  int     `json:"nx"`
	Ny  int     `json:"ny"`
	La1 float64 `json:"la1"`
	La2 float64 `json:"la2"`
	Lo1 float64 `json:"lo1"`
	Lo2 float64 `json:"lo2"`
}

// NewHeader builds a header from its bounds and spacing, deriving nx and ny.
func NewHeader(la1, la2, lo1, lo2, dx, dy float64) VelocityGridHeader {
	h := VelocityGridHeader{Dx: dx, Dy: dy, La1: la1, La2: la2, Lo1: lo1, Lo2: lo2}
	if dx > 0 {
		h.Nx = int(math.Round((lo2-lo1)/dx)) + 1
	}
	if dy > 0 {
		h.Ny = int(math.Round((la1-la2)/dy)) + 1
	}
	return h
}

// GlobalHeader returns the whole-globe grid at the given spacing
// (2.5 degrees gives the common 144x73 grid).
func GlobalHeader(spacing float64) VelocityGridHeader {
	return NewHeader(90, -90, 0, 360-spacing, spacing, spacing)
}

// Cells returns nx*ny.
func (h VelocityGridHeader) Cells() int {
	return h.Nx * h.Ny
}

// Validate rejects headers that describe no cells.
func (h VelocityGridHeader) Validate() error {
	if h.Nx <= 0 || h.Ny <= 0 {
		return &InvalidGridError{Nx: h.Nx, Ny: h.Ny}
	}
	return nil
}

// Index returns the flat row-major index of cell (y, x).
func (h VelocityGridHeader) Index(y, x int) int {
	return y*h.Nx + x
}

// CellCenter returns the coordinate of cell (y, x).
func (h VelocityGridHeader) CellCenter(y, x int) (lat, lon float64) {
	return h.La1 - float64(y)*h.Dy, h.Lo1 + float64(x)*h.Dx
}

// VelocityGrid is a dense two-component grid; len(U) == len(V) == Header.Cells().
// Land cells and cells without a sample are both (0,0).
type VelocityGrid struct {
	Header  VelocityGridHeader
	U       []float64
	V       []float64
	RefTime *time.Time
}

// NewVelocityGrid allocates a zeroed grid for a valid header.
func NewVelocityGrid(header VelocityGridHeader) (*VelocityGrid, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	n := header.Cells()
	return &VelocityGrid{
		Header: header,
		U:      make([]float64, n),
		V:      make([]float64, n),
	}, nil
}

// At returns the vector stored at cell (y, x).
func (g *VelocityGrid) At(y, x int) (u, v float64) {
	i := g.Header.Index(y, x)
	return g.U[i], g.V[i]
}

// GridRun is the persisted record of one generation run.
type GridRun struct {
	ID          int64     `json:"id" db:"id"`
	CycleTime   time.Time `json:"cycle_time" db:"cycle_time"`
	Source      string    `json:"source" db:"source"`
	Nx          int       `json:"nx" db:"nx"`
	Ny          int       `json:"ny" db:"ny"`
	Dx          float64   `json:"dx" db:"dx"`
	Dy          float64   `json:"dy" db:"dy"`
	SampleCount int       `json:"sample_count" db:"sample_count"`
	LandCells   int       `json:"land_cells" db:"land_cells"`
	OceanCells  int       `json:"ocean_cells" db:"ocean_cells"`
	EmptyCells  int       `json:"empty_cells" db:"empty_cells"`
	MaxHeightM  float64   `json:"max_height_m" db:"max_height_m"`
	MeanHeightM float64   `json:"mean_height_m" db:"mean_height_m"`
	OutputPath  string    `json:"output_path" db:"output_path"`
	DurationMs  int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ForecastDay is one day of a point forecast, taken from the daily maxima.
type ForecastDay struct {
	Day          int       `json:"day"`
	ValidTime    time.Time `json:"valid_time"`
	HeightM      float64   `json:"wave_height"`
	DirectionDeg float64   `json:"wave_direction"`
	PeriodS      float64   `json:"wave_period,omitempty"`
}

// ErrNoSamples is returned by a sample source that produced nothing usable.
var ErrNoSamples = errors.New("no wave samples available")

// InvalidGridError is returned for a header describing zero cells.
type InvalidGridError struct {
	Nx int
	Ny int
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("invalid grid: nx=%d ny=%d describes no cells", e.Nx, e.Ny)
}

// IsTransient returns false; a bad header never fixes itself.
func (e *InvalidGridError) IsTransient() bool {
	return false
}

// ValidationError represents a rejected input value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
