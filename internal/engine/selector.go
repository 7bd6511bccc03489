package engine

import "github.com/coastflow/coastflow/internal/coastline"

// ResolutionSelector maps the current zoom level to a coastline detail
// tier. Selection is a pure function of monotonic thresholds; when a
// selected tier fails to load the caller stays on the last successfully
// loaded tier rather than oscillating.
type ResolutionSelector struct {
	// MediumZoom is the zoom at which medium detail starts.
	MediumZoom float64
	// FineZoom is the zoom at which fine detail starts.
	FineZoom float64
}

// DefaultSelector uses coarse below zoom 5, medium from 5, fine from 8.
func DefaultSelector() ResolutionSelector {
	return ResolutionSelector{MediumZoom: 5, FineZoom: 8}
}

// Select returns the tier for a zoom level.
func (s ResolutionSelector) Select(zoom float64) coastline.Tier {
	switch {
	case zoom >= s.FineZoom:
		return coastline.TierFine
	case zoom >= s.MediumZoom:
		return coastline.TierMedium
	default:
		return coastline.TierCoarse
	}
}
