package geo

import "math"

// TileSize is the edge length of a web Mercator tile in CSS pixels.
const TileSize = 256

// maxMercatorLat is the latitude at which the square Mercator world ends.
const maxMercatorLat = 85.05112878

// Viewport describes the host map's current view: a centered, zoomed
// window onto the web Mercator plane, sized in device pixels. It provides
// the projection contract between geographic coordinates and canvas
// pixels. A Viewport is a value; comparing two viewports with == is the
// intended way to detect a view change.
type Viewport struct {
	Width  int // canvas width in device pixels
	Height int // canvas height in device pixels
	Zoom   float64
	Center Point
	// PixelRatio is the device-pixel to CSS-pixel ratio. Zero means 1.
	PixelRatio float64
}

func (v Viewport) pixelRatio() float64 {
	if v.PixelRatio <= 0 {
		return 1
	}
	return v.PixelRatio
}

// worldSize returns the edge length of the full Mercator world in device
// pixels at the viewport's zoom.
func (v Viewport) worldSize() float64 {
	return TileSize * math.Exp2(v.Zoom) * v.pixelRatio()
}

// Valid reports whether the viewport has a drawable area.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// worldXY projects p onto the Mercator plane in device pixels measured
// from the north-west corner of the world.
func (v Viewport) worldXY(p Point) (float64, float64) {
	ws := v.worldSize()
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	x := (p.Lng + 180) / 360 * ws
	latRad := lat * math.Pi / 180
	y := (0.5 - math.Log(math.Tan(math.Pi/4+latRad/2))/(2*math.Pi)) * ws
	return x, y
}

// Origin returns the world-pixel coordinates of the canvas top-left
// corner. The land mask cache keys on this value together with zoom and
// canvas size.
func (v Viewport) Origin() (float64, float64) {
	cx, cy := v.worldXY(v.Center)
	return cx - float64(v.Width)/2, cy - float64(v.Height)/2
}

// Project converts a geographic point to canvas pixel coordinates.
func (v Viewport) Project(p Point) (float64, float64) {
	ox, oy := v.Origin()
	wx, wy := v.worldXY(p)
	return wx - ox, wy - oy
}

// Unproject converts canvas pixel coordinates back to a geographic point.
func (v Viewport) Unproject(x, y float64) Point {
	ox, oy := v.Origin()
	ws := v.worldSize()
	wx, wy := x+ox, y+oy

	lng := wx/ws*360 - 180
	n := math.Pi - 2*math.Pi*wy/ws
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return Point{Lat: lat, Lng: lng}
}

// Bounds returns the geographic bounding box covered by the canvas.
func (v Viewport) Bounds() Bounds {
	nw := v.Unproject(0, 0)
	se := v.Unproject(float64(v.Width), float64(v.Height))
	return Bounds{
		MinLat: se.Lat,
		MaxLat: nw.Lat,
		MinLng: nw.Lng,
		MaxLng: se.Lng,
	}
}
