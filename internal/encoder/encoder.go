// Package encoder writes velocity grids in the two-record u/v JSON layout
// read by leaflet-velocity style front ends.
package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"wave-platform/internal/models"
)

// Grid-data parameter codes. The front end tells the two records apart by
// parameterNumber, so these values are fixed.
const (
	ParameterCategoryMomentum = 2
	ParameterNumberU          = 2
	ParameterNumberV          = 3
)

// RecordHeader is the header of one component record.
type RecordHeader struct {
	ParameterCategory int     `json:"parameterCategory"`
	ParameterNumber   int     `json:"parameterNumber"`
	Dx                float64 `json:"dx"`
	Dy                float64 `json:"dy"`
	Nx                int     `json:"nx"`
	Ny                int     `json:"ny"`
	La1               float64 `json:"la1"`
	La2               float64 `json:"la2"`
	Lo1               float64 `json:"lo1"`
	Lo2               float64 `json:"lo2"`
	RefTime           string  `json:"refTime,omitempty"`
}

// Record is one component band: a header and nx*ny row-major values.
type Record struct {
	Header RecordHeader `json:"header"`
	Data   []float64    `json:"data"`
}

func newRecord(grid *models.VelocityGrid, number int, data []float64) Record {
	h := grid.Header
	rh := RecordHeader{
		ParameterCategory: ParameterCategoryMomentum,
		ParameterNumber:   number,
		Dx:                h.Dx,
		Dy:                h.Dy,
		Nx:                h.Nx,
		Ny:                h.Ny,
		La1:               h.La1,
		La2:               h.La2,
		Lo1:               h.Lo1,
		Lo2:               h.Lo2,
	}
	if grid.RefTime != nil {
		rh.RefTime = grid.RefTime.UTC().Format(time.RFC3339)
	}
	return Record{Header: rh, Data: data}
}

// Records returns the u record followed by the v record.
func Records(grid *models.VelocityGrid) ([]Record, error) {
	if grid == nil {
		return nil, fmt.Errorf("encode grid: nil grid")
	}
	if err := grid.Header.Validate(); err != nil {
		return nil, err
	}
	n := grid.Header.Cells()
	if len(grid.U) != n || len(grid.V) != n {
		return nil, fmt.Errorf("encode grid: have %d u and %d v values, header wants %d", len(grid.U), len(grid.V), n)
	}

	return []Record{
		newRecord(grid, ParameterNumberU, grid.U),
		newRecord(grid, ParameterNumberV, grid.V),
	}, nil
}

// Encode serializes grid as compact JSON.
func Encode(grid *models.VelocityGrid) ([]byte, error) {
	records, err := Records(grid)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode grid: %w", err)
	}
	return data, nil
}

// WriteFile encodes grid and replaces path atomically, creating parent
// directories as needed. Readers never observe a half-written file.
func WriteFile(path string, grid *models.VelocityGrid) (int, error) {
	data, err := Encode(grid)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	return len(data), nil
}

// Decode parses an encoded document back into a grid. It is the inverse of
// Encode and is used to serve and inspect previously written output.
func Decode(data []byte) (*models.VelocityGrid, error) {
	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	if len(records) != 2 {
		return nil, fmt.Errorf("decode grid: want 2 records, got %d", len(records))
	}

	u, v := records[0], records[1]
	if u.Header.ParameterNumber != ParameterNumberU || v.Header.ParameterNumber != ParameterNumberV {
		return nil, fmt.Errorf("decode grid: parameter numbers %d,%d, want %d,%d",
			u.Header.ParameterNumber, v.Header.ParameterNumber, ParameterNumberU, ParameterNumberV)
	}

	header := models.VelocityGridHeader{
		Dx: u.Header.Dx, Dy: u.Header.Dy,
		Nx: u.Header.Nx, Ny: u.Header.Ny,
		La1: u.Header.La1, La2: u.Header.La2,
		Lo1: u.Header.Lo1, Lo2: u.Header.Lo2,
	}
	grid, err := models.NewVelocityGrid(header)
	if err != nil {
		return nil, err
	}
	if len(u.Data) != header.Cells() || len(v.Data) != header.Cells() {
		return nil, fmt.Errorf("decode grid: have %d u and %d v values, header wants %d", len(u.Data), len(v.Data), header.Cells())
	}
	copy(grid.U, u.Data)
	copy(grid.V, v.Data)

	if u.Header.RefTime != "" {
		t, err := time.Parse(time.RFC3339, u.Header.RefTime)
		if err != nil {
			return nil, fmt.Errorf("decode grid: refTime: %w", err)
		}
		grid.RefTime = &t
	}
	return grid, nil
}
