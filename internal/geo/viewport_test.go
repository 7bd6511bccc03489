package geo

import (
	"math"
	"testing"
)

func TestProjectUnprojectRoundTrip(t *testing.T) {
	vp := Viewport{
		Width:  800,
		Height: 600,
		Zoom:   6,
		Center: Point{Lat: 41.5, Lng: -70.7},
	}

	tests := []struct {
		name string
		p    Point
	}{
		{"center", vp.Center},
		{"north east", Point{Lat: 42.3, Lng: -69.9}},
		{"south west", Point{Lat: 40.2, Lng: -71.9}},
		{"equator", Point{Lat: 0, Lng: -70.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := vp.Project(tt.p)
			back := vp.Unproject(x, y)
			if math.Abs(back.Lat-tt.p.Lat) > 1e-9 || math.Abs(back.Lng-tt.p.Lng) > 1e-9 {
				t.Errorf("round trip drifted: %+v -> (%f, %f) -> %+v", tt.p, x, y, back)
			}
		})
	}
}

func TestProjectCenterIsCanvasCenter(t *testing.T) {
	vp := Viewport{Width: 640, Height: 480, Zoom: 4, Center: Point{Lat: 36, Lng: -75}}
	x, y := vp.Project(vp.Center)
	if math.Abs(x-320) > 1e-9 || math.Abs(y-240) > 1e-9 {
		t.Errorf("center projected to (%f, %f), want (320, 240)", x, y)
	}
}

func TestOriginShiftsWithPan(t *testing.T) {
	a := Viewport{Width: 400, Height: 400, Zoom: 5, Center: Point{Lat: 40, Lng: -70}}
	b := a
	b.Center.Lng += 1

	ax, ay := a.Origin()
	bx, by := b.Origin()
	if bx <= ax {
		t.Errorf("panning east should increase origin x: %f -> %f", ax, bx)
	}
	if math.Abs(ay-by) > 1e-9 {
		t.Errorf("east pan changed origin y: %f -> %f", ay, by)
	}
}

func TestBoundsContainCenter(t *testing.T) {
	vp := Viewport{Width: 512, Height: 512, Zoom: 7, Center: Point{Lat: 43.1, Lng: -70.6}}
	b := vp.Bounds()
	if !b.Contains(vp.Center) {
		t.Errorf("bounds %+v do not contain center %+v", b, vp.Center)
	}
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		t.Errorf("degenerate bounds: %+v", b)
	}
}

func TestPixelRatioScalesWorld(t *testing.T) {
	base := Viewport{Width: 400, Height: 400, Zoom: 5, Center: Point{Lat: 40, Lng: -70}}
	hidpi := base
	hidpi.PixelRatio = 2
	hidpi.Width *= 2
	hidpi.Height *= 2

	p := Point{Lat: 40.5, Lng: -69.5}
	bx, by := base.Project(p)
	hx, hy := hidpi.Project(p)
	if math.Abs(hx-bx*2) > 1e-6 || math.Abs(hy-by*2) > 1e-6 {
		t.Errorf("2x pixel ratio should double offsets: (%f,%f) vs (%f,%f)", bx, by, hx, hy)
	}
}

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is about 60 nautical miles.
	d := HaversineDistance(40, -70, 41, -70)
	if d < 59 || d > 61 {
		t.Errorf("1 degree latitude = %f nm, want ~60", d)
	}
	if HaversineDistance(40, -70, 40, -70) != 0 {
		t.Error("distance to self should be zero")
	}
}
