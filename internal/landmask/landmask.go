// Package landmask classifies coordinates as land or ocean.
//
// Every Mask is a pure function of (lat, lon): no I/O after construction and
// the same answer for the same input. Classification near coastlines is
// approximate; only large land interiors and open ocean are reliable.
package landmask

import (
	"math"

	"wave-platform/internal/models"
)

// Mask reports whether a coordinate lies on land.
type Mask interface {
	IsLand(lat, lon float64) bool
}

// MaskFunc adapts a plain function to the Mask interface.
type MaskFunc func(lat, lon float64) bool

// IsLand calls f(lat, lon).
func (f MaskFunc) IsLand(lat, lon float64) bool {
	return f(lat, lon)
}

// Ocean is a mask with no land at all.
var Ocean Mask = MaskFunc(func(lat, lon float64) bool { return false })

// Normalize maps any longitude into [-180, 180).
func Normalize(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Raster evaluates mask at every cell center of header, rows north to south.
func Raster(header models.VelocityGridHeader, mask Mask) ([][]bool, error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}

	rows := make([][]bool, header.Ny)
	for y := 0; y < header.Ny; y++ {
		row := make([]bool, header.Nx)
		for x := 0; x < header.Nx; x++ {
			lat, lon := header.CellCenter(y, x)
			row[x] = mask.IsLand(lat, lon)
		}
		rows[y] = row
	}
	return rows, nil
}

// CountLand returns the number of land cells in a raster.
func CountLand(raster [][]bool) int {
	n := 0
	for _, row := range raster {
		for _, land := range row {
			if land {
				n++
			}
		}
	}
	return n
}
