package coastline

import (
	"encoding/json"
	"fmt"

	"github.com/coastflow/coastflow/internal/geo"
)

// ParseGeoJSON decodes a FeatureCollection (or bare geometry) of Polygon
// and MultiPolygon features into land polygons for the given tier.
// Coordinates follow the GeoJSON [lng, lat] convention.
func ParseGeoJSON(data []byte, tier Tier) (*PolygonSet, error) {
	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
		// Present when the document is a bare geometry.
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding coastline geojson: %w", err)
	}

	var polys []Polygon
	switch doc.Type {
	case "FeatureCollection":
		for i, f := range doc.Features {
			p, err := parseGeometry(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			polys = append(polys, p...)
		}
	case "Polygon", "MultiPolygon":
		raw, err := json.Marshal(map[string]json.RawMessage{
			"type":        json.RawMessage(fmt.Sprintf("%q", doc.Type)),
			"coordinates": doc.Coordinates,
		})
		if err != nil {
			return nil, err
		}
		p, err := parseGeometry(raw)
		if err != nil {
			return nil, err
		}
		polys = p
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", doc.Type)
	}

	return NewPolygonSet(tier, polys), nil
}

func parseGeometry(raw json.RawMessage) ([]Polygon, error) {
	var g struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decoding geometry: %w", err)
	}

	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decoding polygon coordinates: %w", err)
		}
		p, err := polygonFromRings(coords)
		if err != nil {
			return nil, err
		}
		return []Polygon{p}, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decoding multipolygon coordinates: %w", err)
		}
		polys := make([]Polygon, 0, len(coords))
		for _, rings := range coords {
			p, err := polygonFromRings(rings)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
		return polys, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func polygonFromRings(rings [][][]float64) (Polygon, error) {
	if len(rings) == 0 {
		return Polygon{}, fmt.Errorf("polygon has no rings")
	}
	outer, err := ringFromCoords(rings[0])
	if err != nil {
		return Polygon{}, err
	}
	holes := make([]Ring, 0, len(rings)-1)
	for _, rc := range rings[1:] {
		h, err := ringFromCoords(rc)
		if err != nil {
			return Polygon{}, err
		}
		holes = append(holes, h)
	}
	return NewPolygon(outer, holes...), nil
}

func ringFromCoords(coords [][]float64) (Ring, error) {
	if len(coords) < 3 {
		return nil, fmt.Errorf("ring has %d points, need at least 3", len(coords))
	}
	r := make(Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("coordinate has %d values, need [lng, lat]", len(c))
		}
		r = append(r, geo.Point{Lng: c[0], Lat: c[1]})
	}
	return r, nil
}
