package render

import (
	"log/slog"

	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
	"github.com/coastflow/coastflow/internal/logutil"
)

// HeatmapStyle controls the scalar heatmap raster.
type HeatmapStyle struct {
	Ramp    Ramp
	Opacity float64 // overall layer opacity, 0..1
	// MinValue is the visibility threshold: interpolated values below it
	// are left transparent.
	MinValue float64
	// FadeUpper is the value at which the alpha ramp reaches full
	// opacity. Between MinValue and FadeUpper the alpha scales with the
	// value so near-zero regions fade out instead of hard-cutting.
	FadeUpper float64
}

// DefaultHeatmapStyle is tuned for wave height in meters.
func DefaultHeatmapStyle() HeatmapStyle {
	return HeatmapStyle{
		Ramp:      WaveHeightRamp,
		Opacity:   0.55,
		MinValue:  0.05,
		FadeUpper: 0.8,
	}
}

// Heatmap rasterizes a scalar grid into a colored bitmap by per-pixel
// bilinear interpolation through a color ramp.
type Heatmap struct {
	log *slog.Logger
}

// NewHeatmap creates a heatmap rasterizer. A nil logger disables logging.
func NewHeatmap(log *slog.Logger) *Heatmap {
	return &Heatmap{log: logutil.Or(log)}
}

// Render fills dst pixel by pixel, mapping each destination pixel to
// lat/lng through the viewport and interpolating the grid there. Pixels
// outside the grid's valid interpolation range stay transparent.
func (h *Heatmap) Render(dst *Canvas, vp geo.Viewport, g *grid.Cache, style HeatmapStyle) {
	if !dst.OK() || g == nil || !vp.Valid() {
		return
	}

	opacity := style.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	fadeSpan := style.FadeUpper - style.MinValue

	w, hgt := dst.Size()
	dst.Clear()
	pix := dst.Pix()
	painted := 0
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			pt := vp.Unproject(float64(x)+0.5, float64(y)+0.5)
			v, ok := g.Interpolate(pt.Lat, pt.Lng)
			if !ok || v < style.MinValue {
				continue
			}

			alpha := opacity
			if fadeSpan > 0 && v < style.FadeUpper {
				alpha *= (v - style.MinValue) / fadeSpan
			}
			if alpha <= 0 {
				continue
			}

			r, gc, b := style.Ramp.At(v)
			i := (y*w + x) * 4
			pix[i+0] = r
			pix[i+1] = gc
			pix[i+2] = b
			pix[i+3] = uint8(alpha*255 + 0.5)
			painted++
		}
	}

	h.log.Debug("heatmap rasterized", "pixels", painted)
}
