package landmask

// box is an open lat/lon rectangle in the [-180,180] longitude convention.
type box struct {
	name           string
	latMin, latMax float64
	lonMin, lonMax float64
}

func (b box) contains(lat, lon float64) bool {
	return lat > b.latMin && lat < b.latMax && lon > b.lonMin && lon < b.lonMax
}

// BoxMask matches coordinates against an ordered list of rectangles.
// The first matching rectangle wins; no match means ocean.
type BoxMask struct {
	boxes []box
}

// NewBoxMask returns the built-in coarse world mask.
func NewBoxMask() *BoxMask {
	return &BoxMask{boxes: worldBoxes}
}

// IsLand implements Mask.
func (m *BoxMask) IsLand(lat, lon float64) bool {
	lon = Normalize(lon)
	for _, b := range m.boxes {
		if b.contains(lat, lon) {
			return true
		}
	}
	return false
}

// Region returns the name of the first rectangle containing the coordinate,
// or "" for ocean.
func (m *BoxMask) Region(lat, lon float64) string {
	lon = Normalize(lon)
	for _, b := range m.boxes {
		if b.contains(lat, lon) {
			return b.name
		}
	}
	return ""
}

var worldBoxes = []box{
	// polar caps
	{"antarctica", -91, -60, -181, 181},
	{"arctic", 85, 91, -181, 181},

	// north america
	{"alaska", 51, 72, -170, -130},
	{"chukotka", 64, 72, -181, -170},
	{"western canada", 49, 70, -140, -110},
	{"eastern canada", 42, 70, -110, -60},
	{"western us", 32, 49, -124, -104},
	{"central us", 25, 49, -104, -80},
	{"eastern us", 30, 45, -80, -70},
	{"florida", 25, 31, -87, -80},
	{"mexico", 15, 32, -117, -87},
	{"central america", 7, 18, -92, -77},
	{"cuba", 19.5, 23.5, -85, -74},
	{"hispaniola", 17.5, 20, -75, -68},
	{"greenland", 60, 84, -73, -12},
	{"iceland", 63, 67, -24, -13},

	// south america
	{"northern south america", -20, 13, -81, -35},
	{"southern cone", -56, -20, -75, -40},

	// europe
	{"scandinavia", 55, 71, 5, 31},
	{"british isles", 50, 59, -8, 2},
	{"western europe", 36, 55, -10, 15},
	{"eastern europe", 40, 60, 12, 40},
	{"svalbard", 76, 81, 10, 34},

	// africa
	{"north africa", 15, 37, -17, 32},
	{"west africa", 5, 15, -17, 42},
	{"central and southern africa", -35, 5, 9, 41},
	{"horn of africa", -2, 12, 40, 51},
	{"madagascar", -25.5, -12, 43.5, 50.5},

	// asia
	{"arabia", 12, 38, 35, 60},
	{"western russia", 45, 75, 30, 70},
	{"central siberia", 50, 78, 70, 110},
	{"eastern siberia", 50, 72, 110, 180},
	{"central asia", 35, 50, 45, 85},
	{"northern india", 22, 37, 68, 97},
	{"southern india", 8, 25, 70, 87},
	{"sri lanka", 5.5, 10, 79.5, 82},
	{"china", 22, 54, 75, 122},
	{"korea", 34, 43, 124, 130},
	{"honshu", 33, 41, 130, 142},
	{"hokkaido", 41, 46, 139, 146},
	{"taiwan", 21.5, 25.5, 120, 122},
	{"indochina", 10, 28, 92, 109},
	{"malay peninsula", 1, 10, 99, 104},
	{"philippines", 5, 19, 117, 127},
	{"sumatra", -6, 6, 95, 106},
	{"java", -9, -6, 105, 115},
	{"borneo", -4, 7, 109, 119},
	{"sulawesi", -6, 2, 119, 125},
	{"new guinea", -10, -1, 131, 150},

	// oceania
	{"australia", -39, -11, 113, 154},
	{"tasmania", -44, -40.5, 144, 149},
	{"new zealand north", -42, -34, 172, 179},
	{"new zealand south", -47, -40, 166, 175},
	{"new caledonia", -23, -19.5, 163, 169},
	{"hawaii", 18.5, 22.5, -161, -154.5},
}
