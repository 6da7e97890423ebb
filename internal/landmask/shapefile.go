package landmask

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type landShape struct {
	bound orb.Bound
	shape orb.MultiPolygon
}

// ShapefileMask classifies points against land polygons read from an ESRI
// shapefile (for example Natural Earth ne_50m_land). Coordinates in the file
// must be plain lon/lat degrees.
type ShapefileMask struct {
	shapes []landShape
}

// LoadShapefile reads every polygon in path. The file is not kept open.
func LoadShapefile(path string) (*ShapefileMask, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer r.Close()

	mask := &ShapefileMask{}
	for r.Next() {
		_, shape := r.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		mp := toMultiPolygon(p)
		if len(mp) == 0 {
			continue
		}
		mask.shapes = append(mask.shapes, landShape{bound: mp.Bound(), shape: mp})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}
	if len(mask.shapes) == 0 {
		return nil, fmt.Errorf("shapefile %s contains no polygons", path)
	}

	return mask, nil
}

// toMultiPolygon groups the parts of a shapefile polygon. Shapefiles store
// outer rings clockwise and holes counter-clockwise; each hole is attached
// to the outer ring that contains it. A record with no clockwise ring is
// read as outer rings only.
func toMultiPolygon(p *shp.Polygon) orb.MultiPolygon {
	var outers, holes []orb.Ring
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if end-start < 3 {
			continue
		}

		ring := make(orb.Ring, 0, end-start+1)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}

		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
		} else {
			outers = append(outers, ring)
		}
	}

	if len(outers) == 0 {
		outers, holes = holes, nil
	}

	mp := make(orb.MultiPolygon, len(outers))
	for i, outer := range outers {
		mp[i] = orb.Polygon{outer}
	}
	for _, hole := range holes {
		for i, outer := range outers {
			if planar.RingContains(outer, hole[0]) {
				mp[i] = append(mp[i], hole)
				break
			}
		}
	}
	return mp
}

// Polygons returns the number of polygon records loaded.
func (m *ShapefileMask) Polygons() int {
	return len(m.shapes)
}

// IsLand implements Mask. Points inside a hole (a lake) are water.
func (m *ShapefileMask) IsLand(lat, lon float64) bool {
	pt := orb.Point{Normalize(lon), lat}
	for _, s := range m.shapes {
		if !s.bound.Contains(pt) {
			continue
		}
		if planar.MultiPolygonContains(s.shape, pt) {
			return true
		}
	}
	return false
}

// Load returns the shapefile mask at path, or the built-in rules when path is
// empty.
func Load(path string) (Mask, error) {
	if path == "" {
		return NewBoxMask(), nil
	}
	return LoadShapefile(path)
}
