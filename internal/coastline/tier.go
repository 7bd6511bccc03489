// Package coastline loads, caches, and queries land polygon data at
// discrete resolution tiers. Polygon sets are immutable once loaded and
// shared read-only by every consumer.
package coastline

import "fmt"

// Tier identifies one of the discrete coastline detail levels, trading
// fidelity for load size.
type Tier int

const (
	TierCoarse Tier = iota
	TierMedium
	TierFine
)

// Tiers lists all tiers from least to most detailed.
var Tiers = []Tier{TierCoarse, TierMedium, TierFine}

func (t Tier) String() string {
	switch t {
	case TierCoarse:
		return "coarse"
	case TierMedium:
		return "medium"
	case TierFine:
		return "fine"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t >= TierCoarse && t <= TierFine
}

// LoadError is the typed failure returned when a tier cannot be loaded.
// Callers recover by retaining the last successfully loaded tier.
type LoadError struct {
	Tier Tier
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s coastline: %v", e.Tier, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
