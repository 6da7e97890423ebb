package landmask

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"wave-platform/internal/models"
)

// RasterFile is the precomputed mask consumed by the front end.
type RasterFile struct {
	Nx        int      `json:"nx"`
	Ny        int      `json:"ny"`
	Dx        float64  `json:"dx"`
	Dy        float64  `json:"dy"`
	La1       float64  `json:"la1"`
	Lo1       float64  `json:"lo1"`
	LandCells int      `json:"land_cells"`
	Mask      [][]bool `json:"mask"`
}

// WriteRaster rasterizes mask over header and atomically writes it to path,
// creating parent directories as needed. It returns the number of land cells.
func WriteRaster(path string, header models.VelocityGridHeader, mask Mask) (int, error) {
	raster, err := Raster(header, mask)
	if err != nil {
		return 0, err
	}

	land := CountLand(raster)
	data, err := json.Marshal(RasterFile{
		Nx:        header.Nx,
		Ny:        header.Ny,
		Dx:        header.Dx,
		Dy:        header.Dy,
		La1:       header.La1,
		Lo1:       header.Lo1,
		LandCells: land,
		Mask:      raster,
	})
	if err != nil {
		return 0, fmt.Errorf("encode land mask: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create mask directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	return land, nil
}
