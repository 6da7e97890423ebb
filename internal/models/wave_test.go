package models

import (
	"errors"
	"testing"
)

func TestNewHeader(t *testing.T) {
	tests := []struct {
		name           string
		la1, la2       float64
		lo1, lo2       float64
		dx, dy         float64
		wantNx, wantNy int
	}{
		{"global 2.5 degree", 90, -90, 0, 357.5, 2.5, 2.5, 144, 73},
		{"global 10 degree", 90, -90, 0, 350, 10, 10, 36, 19},
		{"regional subset", 50, 20, -80, -40, 0.5, 0.5, 81, 61},
		{"single cell", 10, 10, 20, 20, 1, 1, 1, 1},
		{"zero spacing", 90, -90, 0, 350, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeader(tt.la1, tt.la2, tt.lo1, tt.lo2, tt.dx, tt.dy)
			if h.Nx != tt.wantNx {
				t.Errorf("Nx = %d, want %d", h.Nx, tt.wantNx)
			}
			if h.Ny != tt.wantNy {
				t.Errorf("Ny = %d, want %d", h.Ny, tt.wantNy)
			}
		})
	}
}

func TestGlobalHeader(t *testing.T) {
	h := GlobalHeader(2.5)

	if h.Nx != 144 || h.Ny != 73 {
		t.Fatalf("GlobalHeader(2.5) = %dx%d, want 144x73", h.Nx, h.Ny)
	}
	if h.Lo2 != 357.5 {
		t.Errorf("Lo2 = %v, want 357.5", h.Lo2)
	}
	if h.Cells() != 144*73 {
		t.Errorf("Cells() = %d, want %d", h.Cells(), 144*73)
	}
}

func TestVelocityGridHeader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		nx, ny  int
		wantErr bool
	}{
		{"valid", 36, 19, false},
		{"zero nx", 0, 19, true},
		{"zero ny", 36, 0, true},
		{"negative", -1, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VelocityGridHeader{Nx: tt.nx, Ny: tt.ny, Dx: 10, Dy: 10}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}

			var gridErr *InvalidGridError
			if !errors.As(err, &gridErr) {
				t.Fatalf("error type = %T, want *InvalidGridError", err)
			}
			if gridErr.IsTransient() {
				t.Error("InvalidGridError should not be transient")
			}
		})
	}
}

func TestVelocityGridHeader_CellCenter(t *testing.T) {
	h := GlobalHeader(10)

	tests := []struct {
		y, x             int
		wantLat, wantLon float64
		wantIndex        int
	}{
		{0, 0, 90, 0, 0},
		{9, 0, 0, 0, 9 * 36},
		{18, 35, -90, 350, 18*36 + 35},
		{4, 18, 50, 180, 4*36 + 18},
	}

	for _, tt := range tests {
		lat, lon := h.CellCenter(tt.y, tt.x)
		if lat != tt.wantLat || lon != tt.wantLon {
			t.Errorf("CellCenter(%d, %d) = (%v, %v), want (%v, %v)", tt.y, tt.x, lat, lon, tt.wantLat, tt.wantLon)
		}
		if got := h.Index(tt.y, tt.x); got != tt.wantIndex {
			t.Errorf("Index(%d, %d) = %d, want %d", tt.y, tt.x, got, tt.wantIndex)
		}
	}
}

func TestNewVelocityGrid(t *testing.T) {
	grid, err := NewVelocityGrid(GlobalHeader(10))
	if err != nil {
		t.Fatalf("NewVelocityGrid() error = %v", err)
	}
	if len(grid.U) != 36*19 || len(grid.V) != 36*19 {
		t.Errorf("len(U), len(V) = %d, %d, want %d", len(grid.U), len(grid.V), 36*19)
	}

	if _, err := NewVelocityGrid(VelocityGridHeader{Nx: 0, Ny: 10}); err == nil {
		t.Error("NewVelocityGrid() with nx=0 should fail")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "lat",
		Value:   "95",
		Message: "latitude out of range",
	}

	if err.Error() != "latitude out of range" {
		t.Errorf("Error() = %v, want %v", err.Error(), "latitude out of range")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}
