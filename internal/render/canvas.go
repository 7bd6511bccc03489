// Package render draws the animated marine layers: the land mask, the
// particle field, the scalar heatmap, and the destination-out compositing
// pass that keeps animated pixels off land.
package render

import (
	"image"

	"github.com/gogpu/gg"
)

// Canvas is an off-screen raster surface sized in device pixels. A canvas
// with zero area has no drawing context; every operation on it is a
// silent no-op, which is the expected behavior during viewport
// transitions.
type Canvas struct {
	dc   *gg.Context
	w, h int
}

// NewCanvas allocates a canvas. Zero or negative dimensions produce a
// valid but inert canvas.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{w: w, h: h}
	if w > 0 && h > 0 {
		c.dc = gg.NewContext(w, h)
	}
	return c
}

// OK reports whether the canvas has a drawable surface.
func (c *Canvas) OK() bool {
	return c != nil && c.dc != nil && c.w > 0 && c.h > 0
}

// Size returns the canvas dimensions in device pixels.
func (c *Canvas) Size() (int, int) {
	if c == nil {
		return 0, 0
	}
	return c.w, c.h
}

// Ctx exposes the drawing context, or nil for an inert canvas.
func (c *Canvas) Ctx() *gg.Context {
	if !c.OK() {
		return nil
	}
	return c.dc
}

// Pix returns the raw RGBA pixel buffer (4 bytes per pixel, row major),
// or nil for an inert canvas.
func (c *Canvas) Pix() []uint8 {
	if !c.OK() {
		return nil
	}
	return c.dc.ResizeTarget().Data()
}

// Clear makes the whole canvas transparent.
func (c *Canvas) Clear() {
	if !c.OK() {
		return
	}
	c.dc.Clear()
}

// Fade multiplies every pixel's alpha by factor, producing the trailing
// motion effect when applied between particle frames.
func (c *Canvas) Fade(factor float64) {
	if !c.OK() {
		return
	}
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	f := uint32(factor * 256)
	pix := c.Pix()
	for i := 3; i < len(pix); i += 4 {
		pix[i] = uint8(uint32(pix[i]) * f >> 8)
	}
}

// Shift translates the bitmap by dx, dy pixels, filling exposed pixels
// with transparent black. Used to reposition a pre-rendered raster while
// the viewport pans, ahead of the debounced re-render.
func (c *Canvas) Shift(dx, dy int) {
	if !c.OK() || (dx == 0 && dy == 0) {
		return
	}
	if dx <= -c.w || dx >= c.w || dy <= -c.h || dy >= c.h {
		c.Clear()
		return
	}
	pix := c.Pix()
	stride := c.w * 4

	// Vertical move first; copy has memmove semantics so the overlap is
	// safe in either direction.
	if dy > 0 {
		copy(pix[dy*stride:], pix[:(c.h-dy)*stride])
		zeroBytes(pix[:dy*stride])
	} else if dy < 0 {
		copy(pix, pix[-dy*stride:])
		zeroBytes(pix[(c.h+dy)*stride:])
	}

	if dx == 0 {
		return
	}
	for y := 0; y < c.h; y++ {
		row := pix[y*stride : (y+1)*stride]
		if dx > 0 {
			copy(row[dx*4:], row[:(c.w-dx)*4])
			zeroBytes(row[:dx*4])
		} else {
			copy(row, row[-dx*4:])
			zeroBytes(row[(c.w+dx)*4:])
		}
	}
}

func zeroBytes(b []uint8) {
	for i := range b {
		b[i] = 0
	}
}

// AlphaAt returns the alpha value at a pixel, 0 outside the canvas.
func (c *Canvas) AlphaAt(x, y int) uint8 {
	if !c.OK() || x < 0 || x >= c.w || y < 0 || y >= c.h {
		return 0
	}
	return c.Pix()[(y*c.w+x)*4+3]
}

// Image returns a copy of the canvas as an image, or nil for an inert
// canvas.
func (c *Canvas) Image() *image.RGBA {
	if !c.OK() {
		return nil
	}
	return c.dc.ResizeTarget().ToImage()
}
