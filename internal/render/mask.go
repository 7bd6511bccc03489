package render

import (
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/coastflow/coastflow/internal/coastline"
	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/logutil"
)

// MaskStyle controls the land mask raster.
type MaskStyle struct {
	// BlurRadius softens polygon edges in device pixels. Applied only
	// when the viewport is settled; skipped while it is moving.
	BlurRadius float64
}

// MaskRasterizer fills land polygons into an off-screen bitmap aligned to
// the viewport origin. Safe to call repeatedly with unchanged inputs and
// tolerant of inert (zero-sized) bitmaps.
type MaskRasterizer struct {
	log *slog.Logger
}

// NewMaskRasterizer creates a rasterizer. A nil logger disables logging.
func NewMaskRasterizer(log *slog.Logger) *MaskRasterizer {
	return &MaskRasterizer{log: logutil.Or(log)}
}

// Render rasterizes every land polygon of set into dst for the given
// viewport. moving is an explicit input from the host: while the map is
// panning or zooming the edge blur is skipped for speed.
func (m *MaskRasterizer) Render(dst *Canvas, set *coastline.PolygonSet, vp geo.Viewport, style MaskStyle, moving bool) {
	if !dst.OK() || set == nil || !vp.Valid() {
		return
	}

	dc := dst.Ctx()
	dst.Clear()
	dc.SetRGBA(0, 0, 0, 1)

	// Pad the query box so polygons whose vertices sit just outside the
	// viewport still cover edge pixels.
	bounds := vp.Bounds()
	pad := (bounds.MaxLat - bounds.MinLat) * 0.1
	bounds.MinLat -= pad
	bounds.MaxLat += pad
	bounds.MinLng -= pad
	bounds.MaxLng += pad

	dc.SetFillRule(gg.FillRuleEvenOdd) // holes stay open water
	drawn := 0
	for _, poly := range set.Within(bounds) {
		tracePath(dc, poly.Outer, vp)
		for _, hole := range poly.Holes {
			dc.NewSubPath()
			tracePath(dc, hole, vp)
		}
		if err := dc.Fill(); err != nil {
			m.log.Debug("polygon fill failed", "error", err)
			continue
		}
		drawn++
	}

	if !moving && style.BlurRadius > 0 {
		w, h := dst.Size()
		blurAlpha(dst.Pix(), w, h, style.BlurRadius)
	}

	m.log.Debug("land mask rasterized",
		"tier", set.Tier.String(), "polygons", drawn, "moving", moving)
}

func tracePath(dc *gg.Context, ring coastline.Ring, vp geo.Viewport) {
	for i, pt := range ring {
		x, y := vp.Project(pt)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

// maskKey is the full identity of a rendered mask. Any field change
// invalidates the cached raster.
type maskKey struct {
	originX, originY float64
	zoom             float64
	tier             coastline.Tier
	w, h             int
	blurred          bool
}

// CachedMaskRasterizer memoizes the last rendered mask and skips
// re-rasterization while the viewport origin, zoom, tier, dimensions, and
// blur state are unchanged.
type CachedMaskRasterizer struct {
	inner *MaskRasterizer
	key   maskKey
	valid bool
}

// NewCachedMaskRasterizer wraps a mask rasterizer with origin keyed
// caching.
func NewCachedMaskRasterizer(log *slog.Logger) *CachedMaskRasterizer {
	return &CachedMaskRasterizer{inner: NewMaskRasterizer(log)}
}

// Render re-rasterizes only when the mask identity changed since the last
// call. Returns true when the bitmap was actually re-rendered.
func (c *CachedMaskRasterizer) Render(dst *Canvas, set *coastline.PolygonSet, vp geo.Viewport, style MaskStyle, moving bool) bool {
	if !dst.OK() || set == nil || !vp.Valid() {
		return false
	}
	ox, oy := vp.Origin()
	w, h := dst.Size()
	key := maskKey{
		originX: ox, originY: oy,
		zoom: vp.Zoom,
		tier: set.Tier,
		w:    w, h: h,
		blurred: !moving && style.BlurRadius > 0,
	}
	if c.valid && key == c.key {
		return false
	}
	c.inner.Render(dst, set, vp, style, moving)
	c.key = key
	c.valid = true
	return true
}

// Invalidate forces the next Render to re-rasterize.
func (c *CachedMaskRasterizer) Invalidate() {
	c.valid = false
}
