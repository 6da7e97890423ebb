package regrid

import "math"

// MagnitudeScale converts significant wave height (m) into the vector length
// drawn by the visualization. It is a display factor, not a physical speed.
const MagnitudeScale = 0.5

// ToVector converts a wave direction (degrees, meteorological "from"
// convention: 0 = from north, clockwise) and significant height into planar
// (u, v) components of length height*MagnitudeScale.
//
// Non-finite or negative inputs yield (0, 0) so a bad sample never leaks NaN
// into a grid.
func ToVector(direction, height float64) (u, v float64) {
	if !finite(direction) || !finite(height) || height < 0 {
		return 0, 0
	}

	mathAngle := math.Mod(270-direction, 360)
	rad := mathAngle * math.Pi / 180
	magnitude := height * MagnitudeScale

	return magnitude * math.Cos(rad), magnitude * math.Sin(rad)
}

// FromVector inverts ToVector: it recovers the significant height and the
// meteorological "from" direction in [0, 360). A zero vector returns (0, 0).
func FromVector(u, v float64) (direction, height float64) {
	magnitude := math.Hypot(u, v)
	if magnitude == 0 {
		return 0, 0
	}

	mathAngle := math.Atan2(v, u) * 180 / math.Pi
	direction = math.Mod(270-mathAngle, 360)
	if direction < 0 {
		direction += 360
	}
	return direction, magnitude / MagnitudeScale
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
