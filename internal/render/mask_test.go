package render

import (
	"testing"

	"github.com/coastflow/coastflow/internal/coastline"
	"github.com/coastflow/coastflow/internal/geo"
)

func worldSet(tier coastline.Tier) *coastline.PolygonSet {
	// One huge land polygon covering practically everything.
	return coastline.NewPolygonSet(tier, []coastline.Polygon{
		coastline.NewPolygon(coastline.Ring{
			{Lat: -80, Lng: -179}, {Lat: -80, Lng: 179},
			{Lat: 80, Lng: 179}, {Lat: 80, Lng: -179},
		}),
	})
}

func smallSet(tier coastline.Tier) *coastline.PolygonSet {
	return coastline.NewPolygonSet(tier, []coastline.Polygon{
		coastline.NewPolygon(coastline.Ring{
			{Lat: 0, Lng: 0}, {Lat: 0, Lng: 10},
			{Lat: 10, Lng: 10}, {Lat: 10, Lng: 0},
		}),
	})
}

func testViewport() geo.Viewport {
	return geo.Viewport{
		Width: 64, Height: 64, Zoom: 4,
		Center: geo.Point{Lat: 5, Lng: 5},
	}
}

func TestMaskRenderFillsLand(t *testing.T) {
	dst := NewCanvas(64, 64)
	m := NewMaskRasterizer(nil)

	m.Render(dst, worldSet(coastline.TierCoarse), testViewport(), MaskStyle{}, false)

	if got := dst.AlphaAt(32, 32); got != 255 {
		t.Errorf("land pixel alpha = %d, want 255", got)
	}
}

func TestMaskRenderLeavesOceanClear(t *testing.T) {
	dst := NewCanvas(64, 64)
	m := NewMaskRasterizer(nil)

	// Viewport in the middle of open water, far from the land square.
	vp := geo.Viewport{Width: 64, Height: 64, Zoom: 4, Center: geo.Point{Lat: -40, Lng: -140}}
	m.Render(dst, smallSet(coastline.TierCoarse), vp, MaskStyle{}, false)

	if got := dst.AlphaAt(32, 32); got != 0 {
		t.Errorf("ocean pixel alpha = %d, want 0", got)
	}
}

func TestMaskRenderZeroCanvasNoOp(t *testing.T) {
	m := NewMaskRasterizer(nil)
	// Must not panic.
	m.Render(NewCanvas(0, 0), worldSet(coastline.TierCoarse), testViewport(), MaskStyle{}, false)
	m.Render(nil, worldSet(coastline.TierCoarse), testViewport(), MaskStyle{}, false)
	m.Render(NewCanvas(8, 8), nil, testViewport(), MaskStyle{}, false)
}

func TestMaskRenderRepeatable(t *testing.T) {
	dst := NewCanvas(32, 32)
	m := NewMaskRasterizer(nil)
	vp := testViewport()
	set := worldSet(coastline.TierCoarse)

	m.Render(dst, set, vp, MaskStyle{}, false)
	first := dst.AlphaAt(16, 16)
	m.Render(dst, set, vp, MaskStyle{}, false)
	if got := dst.AlphaAt(16, 16); got != first {
		t.Errorf("repeated render changed output: %d -> %d", first, got)
	}
}

func TestMaskBlurSoftensEdges(t *testing.T) {
	set := smallSet(coastline.TierCoarse)
	vp := geo.Viewport{Width: 64, Height: 64, Zoom: 5, Center: geo.Point{Lat: 10, Lng: 5}}
	m := NewMaskRasterizer(nil)

	sharp := NewCanvas(64, 64)
	m.Render(sharp, set, vp, MaskStyle{}, false)
	soft := NewCanvas(64, 64)
	m.Render(soft, set, vp, MaskStyle{BlurRadius: 3}, false)

	// Find the sharp land/ocean transition along the center column and
	// verify the blurred mask has intermediate alpha around it.
	col := 32
	edge := -1
	for y := 1; y < 64; y++ {
		if (sharp.AlphaAt(col, y-1) == 0) != (sharp.AlphaAt(col, y) == 0) {
			edge = y
			break
		}
	}
	if edge < 0 {
		t.Fatal("no land edge found in test viewport")
	}
	a := soft.AlphaAt(col, edge)
	if a == 0 || a == 255 {
		t.Errorf("blurred edge alpha = %d, want intermediate", a)
	}
}

func TestMaskBlurSkippedWhileMoving(t *testing.T) {
	set := smallSet(coastline.TierCoarse)
	vp := geo.Viewport{Width: 64, Height: 64, Zoom: 5, Center: geo.Point{Lat: 10, Lng: 5}}
	m := NewMaskRasterizer(nil)

	moving := NewCanvas(64, 64)
	m.Render(moving, set, vp, MaskStyle{BlurRadius: 3}, true)
	settled := NewCanvas(64, 64)
	m.Render(settled, set, vp, MaskStyle{}, false)

	// While moving, the blur is skipped so output matches an unblurred
	// render.
	for y := 0; y < 64; y += 7 {
		for x := 0; x < 64; x += 7 {
			if moving.AlphaAt(x, y) != settled.AlphaAt(x, y) {
				t.Fatalf("moving render differs from unblurred at (%d, %d)", x, y)
			}
		}
	}
}

func TestMaskBlurKeepsBordersOpaque(t *testing.T) {
	dst := NewCanvas(64, 64)
	m := NewMaskRasterizer(nil)

	// Land covers the whole canvas; blurring must not darken border
	// pixels whose sample window is clipped by the frame edge.
	m.Render(dst, worldSet(coastline.TierCoarse), testViewport(), MaskStyle{BlurRadius: 3}, false)

	for _, pt := range [][2]int{{0, 0}, {63, 0}, {0, 63}, {63, 63}, {32, 0}, {0, 32}, {32, 32}} {
		if got := dst.AlphaAt(pt[0], pt[1]); got != 255 {
			t.Errorf("alpha at (%d,%d) = %d after blur, want 255", pt[0], pt[1], got)
		}
	}
}

func TestCachedMaskSkipsUnchangedViewport(t *testing.T) {
	dst := NewCanvas(64, 64)
	c := NewCachedMaskRasterizer(nil)
	vp := testViewport()
	set := worldSet(coastline.TierCoarse)

	if !c.Render(dst, set, vp, MaskStyle{}, false) {
		t.Fatal("first render should rasterize")
	}
	if c.Render(dst, set, vp, MaskStyle{}, false) {
		t.Error("unchanged viewport should reuse the cached raster")
	}

	// Panning the origin invalidates.
	moved := vp
	moved.Center.Lng += 1
	if !c.Render(dst, set, moved, MaskStyle{}, false) {
		t.Error("origin change should re-rasterize")
	}

	// Zoom change invalidates.
	zoomed := moved
	zoomed.Zoom += 1
	if !c.Render(dst, set, zoomed, MaskStyle{}, false) {
		t.Error("zoom change should re-rasterize")
	}

	// Tier change invalidates.
	fine := worldSet(coastline.TierFine)
	if !c.Render(dst, fine, zoomed, MaskStyle{}, false) {
		t.Error("tier change should re-rasterize")
	}

	// Explicit invalidation forces a render.
	if c.Render(dst, fine, zoomed, MaskStyle{}, false) {
		t.Error("cache should be warm before Invalidate")
	}
	c.Invalidate()
	if !c.Render(dst, fine, zoomed, MaskStyle{}, false) {
		t.Error("Invalidate should force re-rasterization")
	}
}

func TestCachedMaskDimensionChangeInvalidates(t *testing.T) {
	c := NewCachedMaskRasterizer(nil)
	vp := testViewport()
	set := worldSet(coastline.TierCoarse)

	small := NewCanvas(32, 32)
	if !c.Render(small, set, vp, MaskStyle{}, false) {
		t.Fatal("first render should rasterize")
	}
	big := NewCanvas(64, 64)
	if !c.Render(big, set, vp, MaskStyle{}, false) {
		t.Error("bitmap dimension change should re-rasterize")
	}
}
