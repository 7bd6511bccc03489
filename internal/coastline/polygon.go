package coastline

import (
	"github.com/coastflow/coastflow/internal/geo"
)

// Ring is a closed loop of vertices in degrees. The closing vertex is
// implicit; rings are not required to repeat their first point.
type Ring []geo.Point

// Polygon is one land polygon with optional interior holes (lakes).
type Polygon struct {
	Outer Ring
	Holes []Ring

	bbox geo.Bounds
}

// Bounds returns the polygon's precomputed bounding box.
func (p Polygon) Bounds() geo.Bounds { return p.bbox }

// NewPolygon builds a polygon and precomputes its bounding box.
func NewPolygon(outer Ring, holes ...Ring) Polygon {
	return Polygon{
		Outer: outer,
		Holes: holes,
		bbox:  geo.BoundsOf(outer),
	}
}

// Contains performs exact ray-casting containment against the outer ring
// and holes. A point inside a hole is not contained.
func (p Polygon) Contains(lat, lng float64) bool {
	if !p.bbox.Contains(geo.Point{Lat: lat, Lng: lng}) {
		return false
	}
	if !p.Outer.contains(lat, lng) {
		return false
	}
	for _, h := range p.Holes {
		if h.contains(lat, lng) {
			return false
		}
	}
	return true
}

func (r Ring) contains(lat, lng float64) bool {
	in := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := r[i].Lat, r[i].Lng
		yj, xj := r[j].Lat, r[j].Lng
		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			in = !in
		}
	}
	return in
}

// PolygonSet is the immutable collection of land polygons at one tier.
// It is never mutated after construction.
type PolygonSet struct {
	Tier     Tier
	Polygons []Polygon
}

// NewPolygonSet wraps polygons into an immutable set for a tier.
func NewPolygonSet(tier Tier, polys []Polygon) *PolygonSet {
	return &PolygonSet{Tier: tier, Polygons: polys}
}

// Contains reports whether the point falls on land in this set.
func (s *PolygonSet) Contains(lat, lng float64) bool {
	for _, p := range s.Polygons {
		if p.Contains(lat, lng) {
			return true
		}
	}
	return false
}

// Within returns the polygons whose bounding boxes intersect b.
func (s *PolygonSet) Within(b geo.Bounds) []Polygon {
	var out []Polygon
	for _, p := range s.Polygons {
		if p.bbox.Intersects(b) {
			out = append(out, p)
		}
	}
	return out
}
