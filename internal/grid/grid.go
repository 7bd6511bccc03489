// Package grid converts sparse lat/lng-sampled forecast observations into
// a dense rectangular grid and interpolates scalar and angular quantities
// bilinearly.
package grid

import (
	"math"
	"sort"
)

// DefaultStep is the grid spacing in degrees used when the input has too
// few distinct samples to derive one.
const DefaultStep = 0.05

// Sample is one scattered forecast observation.
type Sample struct {
	Lat   float64
	Lng   float64
	Value float64
	// Direction is in degrees, meteorological convention (0 = from
	// north). Only meaningful when HasDirection is set.
	Direction    float64
	HasDirection bool
}

// Cache is the dense grid built from a sample set. It is rebuilt
// wholesale whenever new source data arrives and treated as read-only by
// consumers within a frame.
type Cache struct {
	Values [][]float64
	// Ocean marks cells that were present in the input sample set.
	// Cells with no sample are non-ocean.
	Ocean [][]bool
	// Dirs holds directions in radians using the points-toward
	// convention (input direction + 180 degrees).
	Dirs [][]float64

	MinLat, MaxLat float64
	MinLng, MaxLng float64
	Rows, Cols     int
	LatStep        float64
	LngStep        float64
}

// Build converts scattered samples into a dense grid. Returns nil for an
// empty sample set. Each input point maps to exactly one cell by nearest
// rounding; points outside the derived extent are dropped.
func Build(points []Sample) *Cache {
	if len(points) == 0 {
		return nil
	}

	lats := uniqueSorted(points, func(s Sample) float64 { return s.Lat })
	lngs := uniqueSorted(points, func(s Sample) float64 { return s.Lng })

	c := &Cache{
		MinLat:  lats[0],
		MaxLat:  lats[len(lats)-1],
		MinLng:  lngs[0],
		MaxLng:  lngs[len(lngs)-1],
		LatStep: smallestGap(lats),
		LngStep: smallestGap(lngs),
	}
	c.Rows = int(math.Round((c.MaxLat-c.MinLat)/c.LatStep)) + 1
	c.Cols = int(math.Round((c.MaxLng-c.MinLng)/c.LngStep)) + 1

	c.Values = make([][]float64, c.Rows)
	c.Ocean = make([][]bool, c.Rows)
	c.Dirs = make([][]float64, c.Rows)
	for r := 0; r < c.Rows; r++ {
		c.Values[r] = make([]float64, c.Cols)
		c.Ocean[r] = make([]bool, c.Cols)
		c.Dirs[r] = make([]float64, c.Cols)
	}

	for _, p := range points {
		row := int(math.Round((p.Lat - c.MinLat) / c.LatStep))
		col := int(math.Round((p.Lng - c.MinLng) / c.LngStep))
		if row < 0 || row >= c.Rows || col < 0 || col >= c.Cols {
			continue
		}
		c.Values[row][col] = p.Value
		c.Ocean[row][col] = true
		if p.HasDirection {
			c.Dirs[row][col] = (p.Direction + 180) * math.Pi / 180
		}
	}
	return c
}

func uniqueSorted(points []Sample, key func(Sample) float64) []float64 {
	seen := make(map[float64]struct{}, len(points))
	out := make([]float64, 0, len(points))
	for _, p := range points {
		k := key(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}

// smallestGap returns the smallest positive difference between adjacent
// sorted samples, or DefaultStep when fewer than two distinct samples
// exist.
func smallestGap(sorted []float64) float64 {
	gap := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	if math.IsInf(gap, 1) {
		return DefaultStep
	}
	return gap
}

// CellAt returns the nearest cell for a coordinate, or ok=false when the
// point is outside the grid extent.
func (c *Cache) CellAt(lat, lng float64) (row, col int, ok bool) {
	row = int(math.Round((lat - c.MinLat) / c.LatStep))
	col = int(math.Round((lng - c.MinLng) / c.LngStep))
	if row < 0 || row >= c.Rows || col < 0 || col >= c.Cols {
		return 0, 0, false
	}
	return row, col, true
}

// OceanAt reports whether the nearest cell to the coordinate carried a
// sample. Points outside the grid are not ocean.
func (c *Cache) OceanAt(lat, lng float64) bool {
	row, col, ok := c.CellAt(lat, lng)
	return ok && c.Ocean[row][col]
}

// gridPos converts a coordinate to fractional grid coordinates and the
// base cell for bilinear interpolation. ok is false outside the valid
// interpolation interior (which includes the exact grid boundary).
func (c *Cache) gridPos(lat, lng float64) (fx, fy float64, col, row int, ok bool) {
	if c.Rows < 2 || c.Cols < 2 {
		return 0, 0, 0, 0, false
	}
	x := (lng - c.MinLng) / c.LngStep
	y := (lat - c.MinLat) / c.LatStep
	if x < 0 || x > float64(c.Cols-1) || y < 0 || y > float64(c.Rows-1) {
		return 0, 0, 0, 0, false
	}
	col = int(math.Floor(x))
	row = int(math.Floor(y))
	// Clamp the exact far boundary into the last interior cell.
	if col > c.Cols-2 {
		col = c.Cols - 2
	}
	if row > c.Rows-2 {
		row = c.Rows - 2
	}
	return x - float64(col), y - float64(row), col, row, true
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// Interpolate returns the bilinearly interpolated scalar value at the
// coordinate. ok is false outside the grid's valid interpolation range;
// callers treat that as "no data", never as an error.
func (c *Cache) Interpolate(lat, lng float64) (float64, bool) {
	fx, fy, col, row, ok := c.gridPos(lat, lng)
	if !ok {
		return 0, false
	}
	top := lerp(c.Values[row][col], c.Values[row][col+1], fx)
	bottom := lerp(c.Values[row+1][col], c.Values[row+1][col+1], fx)
	return lerp(top, bottom, fy), true
}

// InterpolateAngle returns the bilinearly interpolated direction in
// radians (points-toward convention). Each corner angle is decomposed
// into sin/cos components which are interpolated independently and
// recombined, avoiding the wraparound discontinuity of interpolating
// angles directly.
func (c *Cache) InterpolateAngle(lat, lng float64) (float64, bool) {
	fx, fy, col, row, ok := c.gridPos(lat, lng)
	if !ok {
		return 0, false
	}

	var sins, coss [4]float64
	angles := [4]float64{
		c.Dirs[row][col], c.Dirs[row][col+1],
		c.Dirs[row+1][col], c.Dirs[row+1][col+1],
	}
	for i, a := range angles {
		sins[i] = math.Sin(a)
		coss[i] = math.Cos(a)
	}

	s := lerp(lerp(sins[0], sins[1], fx), lerp(sins[2], sins[3], fx), fy)
	co := lerp(lerp(coss[0], coss[1], fx), lerp(coss[2], coss[3], fx), fy)
	return math.Atan2(s, co), true
}
