package grid

import (
	"fmt"
	"math"
)

// ComponentGrid is one packed component field (U east-west or V
// north-south) of a vector forecast, laid out row-major from the origin
// corner.
type ComponentGrid struct {
	OriginLat float64
	OriginLng float64
	DeltaLat  float64
	DeltaLng  float64
	Columns   int
	Rows      int
	Values    []float64
}

func (g ComponentGrid) validate() error {
	if g.Columns <= 0 || g.Rows <= 0 {
		return fmt.Errorf("component grid has %dx%d cells", g.Columns, g.Rows)
	}
	if len(g.Values) != g.Columns*g.Rows {
		return fmt.Errorf("component grid has %d values for %dx%d cells",
			len(g.Values), g.Columns, g.Rows)
	}
	if g.DeltaLat == 0 || g.DeltaLng == 0 {
		return fmt.Errorf("component grid has zero step")
	}
	return nil
}

// FromComponents converts matching U and V component grids into scattered
// samples: value is the vector magnitude, direction the meteorological
// "from" bearing. The result feeds Build like any other sample set.
func FromComponents(u, v ComponentGrid) ([]Sample, error) {
	if err := u.validate(); err != nil {
		return nil, fmt.Errorf("u component: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("v component: %w", err)
	}
	if u.Columns != v.Columns || u.Rows != v.Rows {
		return nil, fmt.Errorf("component shapes differ: u %dx%d, v %dx%d",
			u.Columns, u.Rows, v.Columns, v.Rows)
	}
	if u.OriginLat != v.OriginLat || u.OriginLng != v.OriginLng ||
		u.DeltaLat != v.DeltaLat || u.DeltaLng != v.DeltaLng {
		return nil, fmt.Errorf("component grids are not aligned")
	}

	samples := make([]Sample, 0, len(u.Values))
	for row := 0; row < u.Rows; row++ {
		for col := 0; col < u.Columns; col++ {
			i := row*u.Columns + col
			uu, vv := u.Values[i], v.Values[i]
			speed := math.Hypot(uu, vv)
			// Bearing the vector points toward, then flipped to the
			// meteorological "from" convention.
			dirFrom := math.Atan2(uu, vv)*180/math.Pi + 180
			samples = append(samples, Sample{
				Lat:          u.OriginLat + float64(row)*u.DeltaLat,
				Lng:          u.OriginLng + float64(col)*u.DeltaLng,
				Value:        speed,
				Direction:    dirFrom,
				HasDirection: true,
			})
		}
	}
	return samples, nil
}
