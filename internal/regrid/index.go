package regrid

import (
	"math"

	"wave-platform/internal/models"
)

// searcher finds the sample nearest to a coordinate. Ties go to the sample
// that appears first in the input.
type searcher interface {
	nearest(lat, lon float64) (int, bool)
}

// wrapDelta maps a longitude difference onto the shorter way round, [-180, 180].
func wrapDelta(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

func distance(lat, lon float64, s models.WaveSample) (dist, dlat, dlon float64) {
	dlat = lat - s.Latitude
	dlon = wrapDelta(lon - s.Longitude)
	return dlat*dlat + dlon*dlon, dlat, dlon
}

// linearSearch scans every sample. window > 0 limits candidates to a square
// of that half-width around the query point.
type linearSearch struct {
	samples []models.WaveSample
	window  float64
}

func (s *linearSearch) nearest(lat, lon float64) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, sample := range s.samples {
		d, dlat, dlon := distance(lat, lon, sample)
		if s.window > 0 && (math.Abs(dlat) > s.window || math.Abs(dlon) > s.window) {
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

type bucketKey struct {
	lat, lon int
}

// bucketIndex groups samples into cells at least window degrees wide so a
// windowed query only inspects the 3x3 block of cells around it.
type bucketIndex struct {
	samples  []models.WaveSample
	window   float64
	lonWidth float64
	lonCount int
	buckets  map[bucketKey][]int
}

func newSearcher(samples []models.WaveSample, window float64) searcher {
	if window <= 0 || !finite(window) {
		return &linearSearch{samples: samples}
	}

	lonCount := int(math.Floor(360 / window))
	if lonCount < 3 {
		return &linearSearch{samples: samples, window: window}
	}

	idx := &bucketIndex{
		samples:  samples,
		window:   window,
		lonWidth: 360 / float64(lonCount),
		lonCount: lonCount,
		buckets:  make(map[bucketKey][]int),
	}
	for i, s := range samples {
		if !finite(s.Latitude) || !finite(s.Longitude) {
			continue
		}
		key := idx.key(s.Latitude, s.Longitude)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

func (b *bucketIndex) key(lat, lon float64) bucketKey {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	col := int(math.Floor(lon/b.lonWidth)) % b.lonCount
	return bucketKey{
		lat: int(math.Floor((lat + 90) / b.window)),
		lon: col,
	}
}

func (b *bucketIndex) nearest(lat, lon float64) (int, bool) {
	center := b.key(lat, lon)
	best, bestDist := -1, math.Inf(1)

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			col := (center.lon + dx + b.lonCount) % b.lonCount
			for _, i := range b.buckets[bucketKey{lat: center.lat + dy, lon: col}] {
				d, dlat, dlon := distance(lat, lon, b.samples[i])
				if math.Abs(dlat) > b.window || math.Abs(dlon) > b.window {
					continue
				}
				if d < bestDist || (d == bestDist && i < best) {
					best, bestDist = i, d
				}
			}
		}
	}
	return best, best >= 0
}
