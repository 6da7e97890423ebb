package regrid

import (
	"context"
	"errors"
	"math"
	"testing"

	"wave-platform/internal/landmask"
	"wave-platform/internal/models"
)

const tolerance = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestToVector_CardinalDirections(t *testing.T) {
	tests := []struct {
		direction float64
		wantU     float64
		wantV     float64
	}{
		{0, 0, -1},
		{90, -1, 0},
		{180, 0, 1},
		{270, 1, 0},
	}

	for _, tt := range tests {
		u, v := ToVector(tt.direction, 2.0)

		rad := math.Mod(270-tt.direction, 360) * math.Pi / 180
		if !near(u, math.Cos(rad)) || !near(v, math.Sin(rad)) {
			t.Errorf("ToVector(%v, 2) = (%v, %v), disagrees with formula (%v, %v)", tt.direction, u, v, math.Cos(rad), math.Sin(rad))
		}
		if !near(u, tt.wantU) || !near(v, tt.wantV) {
			t.Errorf("ToVector(%v, 2) = (%v, %v), want (%v, %v)", tt.direction, u, v, tt.wantU, tt.wantV)
		}
	}
}

func TestToVector_MagnitudeScaling(t *testing.T) {
	for _, h := range []float64{0, 0.3, 1, 2.5, 7.25, 14} {
		for d := 0.0; d < 360; d += 22.5 {
			u, v := ToVector(d, h)
			if got := math.Hypot(u, v); !near(got, 0.5*h) {
				t.Errorf("|ToVector(%v, %v)| = %v, want %v", d, h, got, 0.5*h)
			}
		}
	}
}

func TestToVector_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		direction float64
		height    float64
	}{
		{"nan direction", math.NaN(), 5},
		{"nan height", 10, math.NaN()},
		{"inf height", 10, math.Inf(1)},
		{"inf direction", math.Inf(-1), 3},
		{"negative fill value", 45, -9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := ToVector(tt.direction, tt.height)
			if u != 0 || v != 0 {
				t.Errorf("ToVector(%v, %v) = (%v, %v), want (0, 0)", tt.direction, tt.height, u, v)
			}
		})
	}
}

func TestFromVector(t *testing.T) {
	for _, d := range []float64{0, 45, 90, 135, 180, 225, 270, 315, 359} {
		u, v := ToVector(d, 3)
		gotDir, gotHeight := FromVector(u, v)
		if math.Abs(gotDir-d) > 1e-6 && math.Abs(gotDir-d) < 360-1e-6 {
			t.Errorf("FromVector direction = %v, want %v", gotDir, d)
		}
		if !near(gotHeight, 3) {
			t.Errorf("FromVector height = %v, want 3", gotHeight)
		}
	}

	if d, h := FromVector(0, 0); d != 0 || h != 0 {
		t.Errorf("FromVector(0, 0) = (%v, %v), want (0, 0)", d, h)
	}
}

func TestRegrid_SingleSampleScenario(t *testing.T) {
	header := models.VelocityGridHeader{Dx: 10, Dy: 10, Nx: 36, Ny: 19, La1: 90, La2: -90, Lo1: 0, Lo2: 350}
	samples := []models.WaveSample{{Latitude: 0, Longitude: 0, SignificantHeight: 4, MeanDirection: 0}}
	mask := landmask.NewBoxMask()

	if mask.IsLand(0, 0) {
		t.Fatal("fixture cell (0, 0) must be ocean")
	}

	grid, err := Regrid(header, samples)
	if err != nil {
		t.Fatalf("Regrid() error = %v", err)
	}

	u, v := grid.At(9, 0)
	if !near(u, 0) || !near(v, -2) {
		t.Errorf("cell (0, 0) = (%v, %v), want (0, -2)", u, v)
	}

	for y := 0; y < header.Ny; y++ {
		for x := 0; x < header.Nx; x++ {
			lat, lon := header.CellCenter(y, x)
			u, v := grid.At(y, x)
			if mask.IsLand(lat, lon) {
				if u != 0 || v != 0 {
					t.Errorf("land cell (%v, %v) = (%v, %v), want exactly (0, 0)", lat, lon, u, v)
				}
				continue
			}
			if !near(u, 0) || !near(v, -2) {
				t.Errorf("ocean cell (%v, %v) = (%v, %v), want (0, -2)", lat, lon, u, v)
			}
		}
	}
}

func TestRegrid_LandInvariance(t *testing.T) {
	header := models.GlobalHeader(2.5)
	mask := landmask.NewBoxMask()

	// Dense, strong samples everywhere, including over land.
	var samples []models.WaveSample
	for lat := -85.0; lat <= 85; lat += 5 {
		for lon := 0.0; lon < 360; lon += 5 {
			samples = append(samples, models.WaveSample{Latitude: lat, Longitude: lon, SignificantHeight: 9, MeanDirection: lon})
		}
	}

	res, err := New(mask, Options{}).Regrid(context.Background(), header, samples)
	if err != nil {
		t.Fatalf("Regrid() error = %v", err)
	}

	land := 0
	for y := 0; y < header.Ny; y++ {
		for x := 0; x < header.Nx; x++ {
			lat, lon := header.CellCenter(y, x)
			if !mask.IsLand(lat, lon) {
				continue
			}
			land++
			if u, v := res.Grid.At(y, x); u != 0 || v != 0 {
				t.Fatalf("land cell (%v, %v) = (%v, %v), want (0, 0)", lat, lon, u, v)
			}
		}
	}

	if res.Stats.LandCells != land {
		t.Errorf("Stats.LandCells = %d, want %d", res.Stats.LandCells, land)
	}
	if res.Stats.LandCells+res.Stats.OceanCells+res.Stats.EmptyCells != header.Cells() {
		t.Errorf("stats do not add up to %d cells: %+v", header.Cells(), res.Stats)
	}
}

func TestRegrid_GridShape(t *testing.T) {
	headers := []models.VelocityGridHeader{
		models.GlobalHeader(2.5),
		models.GlobalHeader(10),
		models.NewHeader(50, 20, -80, -40, 0.5, 0.5),
		{Dx: 1, Dy: 1, Nx: 1, Ny: 1, La1: 0, La2: 0, Lo1: 0, Lo2: 0},
	}
	samples := []models.WaveSample{{Latitude: 10, Longitude: 10, SignificantHeight: 1, MeanDirection: 90}}

	for _, h := range headers {
		grid, err := Regrid(h, samples)
		if err != nil {
			t.Fatalf("Regrid(%+v) error = %v", h, err)
		}
		if len(grid.U) != h.Nx*h.Ny || len(grid.V) != h.Nx*h.Ny {
			t.Errorf("len(U), len(V) = %d, %d, want %d", len(grid.U), len(grid.V), h.Nx*h.Ny)
		}
	}
}

func TestRegrid_ZeroGrid(t *testing.T) {
	for _, h := range []models.VelocityGridHeader{
		{Dx: 10, Dy: 10, Nx: 0, Ny: 19},
		{Dx: 10, Dy: 10, Nx: 36, Ny: 0},
	} {
		_, err := Regrid(h, nil)
		var gridErr *models.InvalidGridError
		if !errors.As(err, &gridErr) {
			t.Errorf("Regrid(nx=%d, ny=%d) error = %v, want InvalidGridError", h.Nx, h.Ny, err)
		}
	}
}

func TestRegrid_NoSamples(t *testing.T) {
	header := models.GlobalHeader(10)

	res, err := New(landmask.Ocean, Options{}).Regrid(context.Background(), header, nil)
	if err != nil {
		t.Fatalf("Regrid() error = %v", err)
	}
	if res.Stats.EmptyCells != header.Cells() {
		t.Errorf("EmptyCells = %d, want %d", res.Stats.EmptyCells, header.Cells())
	}
	for i := range res.Grid.U {
		if res.Grid.U[i] != 0 || res.Grid.V[i] != 0 {
			t.Fatalf("cell %d = (%v, %v), want (0, 0)", i, res.Grid.U[i], res.Grid.V[i])
		}
	}
}

func TestRegrid_TieBreakFirstWins(t *testing.T) {
	header := models.VelocityGridHeader{Dx: 1, Dy: 1, Nx: 1, Ny: 1, La1: 0, La2: 0, Lo1: 0, Lo2: 0}
	// Both samples are exactly 1 degree from the single cell.
	samples := []models.WaveSample{
		{Latitude: 1, Longitude: 0, SignificantHeight: 2, MeanDirection: 0},
		{Latitude: -1, Longitude: 0, SignificantHeight: 2, MeanDirection: 180},
	}

	for _, opts := range []Options{{}, {Window: 1.5}, {Workers: 4}} {
		res, err := New(landmask.Ocean, opts).Regrid(context.Background(), header, samples)
		if err != nil {
			t.Fatalf("Regrid(%+v) error = %v", opts, err)
		}
		if u, v := res.Grid.At(0, 0); !near(u, 0) || !near(v, -1) {
			t.Errorf("opts %+v: cell = (%v, %v), want first sample (0, -1)", opts, u, v)
		}
	}
}

func TestRegrid_LongitudeWrap(t *testing.T) {
	header := models.VelocityGridHeader{Dx: 1, Dy: 1, Nx: 1, Ny: 1, La1: 0, La2: 0, Lo1: 359, Lo2: 359}
	samples := []models.WaveSample{
		{Latitude: 0, Longitude: 300, SignificantHeight: 2, MeanDirection: 0},
		{Latitude: 0, Longitude: 1, SignificantHeight: 2, MeanDirection: 90}, // two degrees east, across the meridian
	}

	res, err := New(landmask.Ocean, Options{}).Regrid(context.Background(), header, samples)
	if err != nil {
		t.Fatalf("Regrid() error = %v", err)
	}
	if u, v := res.Grid.At(0, 0); !near(u, -1) || !near(v, 0) {
		t.Errorf("cell = (%v, %v), want sample across the meridian (-1, 0)", u, v)
	}
}

func TestRegrid_WindowFallback(t *testing.T) {
	header := models.GlobalHeader(10)
	samples := []models.WaveSample{{Latitude: 0, Longitude: 180, SignificantHeight: 4, MeanDirection: 270}}

	res, err := New(landmask.Ocean, Options{Window: 5}).Regrid(context.Background(), header, samples)
	if err != nil {
		t.Fatalf("Regrid() error = %v", err)
	}

	if u, v := res.Grid.At(9, 18); !near(u, 2) || !near(v, 0) {
		t.Errorf("cell at sample = (%v, %v), want (2, 0)", u, v)
	}
	if u, v := res.Grid.At(9, 0); u != 0 || v != 0 {
		t.Errorf("cell outside window = (%v, %v), want (0, 0)", u, v)
	}
	if res.Stats.OceanCells != 1 {
		t.Errorf("OceanCells = %d, want 1", res.Stats.OceanCells)
	}
	if res.Stats.EmptyCells != header.Cells()-1 {
		t.Errorf("EmptyCells = %d, want %d", res.Stats.EmptyCells, header.Cells()-1)
	}
}

func stridedSamples(header models.VelocityGridHeader, stride int) []models.WaveSample {
	var samples []models.WaveSample
	for y := 0; y < header.Ny; y += stride {
		for x := 0; x < header.Nx; x += stride {
			lat, lon := header.CellCenter(y, x)
			samples = append(samples, models.WaveSample{
				Latitude:          lat,
				Longitude:         lon,
				SignificantHeight: float64((y*7+x*3)%11) * 0.5,
				MeanDirection:     float64((x * 37) % 360),
			})
		}
	}
	return samples
}

func TestRegrid_BucketIndexMatchesLinearSearch(t *testing.T) {
	header := models.GlobalHeader(2.5)
	samples := stridedSamples(header, 4)
	window := 4 * 2.5 / 2

	bucket := newSearcher(samples, window)
	linear := &linearSearch{samples: samples, window: window}

	for y := 0; y < header.Ny; y++ {
		for x := 0; x < header.Nx; x++ {
			lat, lon := header.CellCenter(y, x)
			bi, bok := bucket.nearest(lat, lon)
			li, lok := linear.nearest(lat, lon)
			if bi != li || bok != lok {
				t.Fatalf("cell (%v, %v): bucket = (%d, %v), linear = (%d, %v)", lat, lon, bi, bok, li, lok)
			}
		}
	}
}

func TestRegrid_Deterministic(t *testing.T) {
	header := models.GlobalHeader(2.5)
	samples := stridedSamples(header, 3)
	mask := landmask.NewBoxMask()

	runs := []Options{{}, {}, {Workers: 8}, {Window: 3.75}, {Window: 3.75, Workers: 4}}
	var results []*Result
	for _, opts := range runs {
		res, err := New(mask, opts).Regrid(context.Background(), header, samples)
		if err != nil {
			t.Fatalf("Regrid(%+v) error = %v", opts, err)
		}
		results = append(results, res)
	}

	same := func(a, b *models.VelocityGrid) bool {
		for i := range a.U {
			if math.Float64bits(a.U[i]) != math.Float64bits(b.U[i]) || math.Float64bits(a.V[i]) != math.Float64bits(b.V[i]) {
				return false
			}
		}
		return true
	}

	if !same(results[0].Grid, results[1].Grid) {
		t.Error("two sequential runs differ")
	}
	if !same(results[0].Grid, results[2].Grid) {
		t.Error("parallel run differs from sequential run")
	}
	if !same(results[3].Grid, results[4].Grid) {
		t.Error("parallel windowed run differs from sequential windowed run")
	}
	if results[0].Stats != results[2].Stats {
		t.Errorf("stats differ: %+v vs %+v", results[0].Stats, results[2].Stats)
	}
}

func TestRegrid_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, opts := range []Options{{}, {Workers: 4}} {
		_, err := New(landmask.Ocean, opts).Regrid(ctx, models.GlobalHeader(10), nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Regrid(%+v) error = %v, want context.Canceled", opts, err)
		}
	}
}
