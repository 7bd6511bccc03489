// Package engine drives the animated marine layers: it owns the render
// canvases, sequences coastline loading against the animation loop, and
// enforces the rule that no animated pixel is ever composited before the
// land mask for the current viewport exists.
package engine

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/coastflow/coastflow/internal/coastline"
	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
	"github.com/coastflow/coastflow/internal/logutil"
	"github.com/coastflow/coastflow/internal/render"
)

// State is the renderer lifecycle. Transitions run strictly forward
// except Ready -> LoadingMask, which never happens: once a mask has been
// established the renderer keeps serving frames with the last complete
// mask through tier switches and load failures.
type State int

const (
	StateUninitialized State = iota
	StateLoadingMask
	StateReady
	StateTearingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadingMask:
		return "loadingMask"
	case StateReady:
		return "ready"
	case StateTearingDown:
		return "tearingDown"
	default:
		return "unknown"
	}
}

// CoastSource is the coastline data dependency, implemented by
// *coastline.Store.
type CoastSource interface {
	Load(ctx context.Context, tier coastline.Tier) (*coastline.PolygonSet, error)
	Loaded(tier coastline.Tier) (*coastline.PolygonSet, bool)
	IsReady() bool
	PointInLand(lat, lng float64) bool
}

// Config carries the in-process renderer parameters.
type Config struct {
	Selector  ResolutionSelector
	Mask      render.MaskStyle
	Heatmap   render.HeatmapStyle
	Particles render.ParticleConfig

	ShowHeatmap   bool
	ShowParticles bool

	// DebounceDelay is the quiet period after viewport movement before
	// the mask and heatmap are re-rasterized. Zero means 200ms.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// DefaultConfig enables both layers with the default styles.
func DefaultConfig() Config {
	return Config{
		Selector:      DefaultSelector(),
		Mask:          render.MaskStyle{BlurRadius: 2},
		Heatmap:       render.DefaultHeatmapStyle(),
		Particles:     render.DefaultParticleConfig(),
		ShowHeatmap:   true,
		ShowParticles: true,
	}
}

func (c Config) debounce() time.Duration {
	if c.DebounceDelay <= 0 {
		return 200 * time.Millisecond
	}
	return c.DebounceDelay
}

// Renderer composes the animated layers once per host frame. All methods
// are safe for concurrent use, but the intended model is cooperative: the
// host calls Frame from its animation callback and the event methods from
// its map event handlers.
type Renderer struct {
	cfg   Config
	coast CoastSource
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	vp     geo.Viewport
	moving bool
	field  *grid.Cache

	// Tier bookkeeping. activeTier is the tier of the last established
	// mask; targetTier is a freshly loaded tier waiting for its first
	// raster.
	activeTier  coastline.Tier
	tierKnown   bool
	targetTier  coastline.Tier
	haveTarget  bool
	loading     bool
	loadingTier coastline.Tier

	content   *render.Canvas // particle trails
	heat      *render.Canvas // scalar heatmap
	mask      *render.Canvas // land mask
	out       *render.Canvas // composed frame
	masker    *render.CachedMaskRasterizer
	heatmap   *render.Heatmap
	particles *render.ParticleField
	heatDirty bool

	// Origin the heat raster was last rendered or shifted to, so a pan
	// can reposition it without a full re-render.
	heatOriginX float64
	heatOriginY float64
	heatZoom    float64
	heatValid   bool

	debounceTimer *time.Timer
}

// New creates a renderer over the given coastline source.
func New(coast CoastSource, cfg Config) *Renderer {
	log := logutil.Or(cfg.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		cfg:       cfg,
		coast:     coast,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateUninitialized,
		masker:    render.NewCachedMaskRasterizer(log),
		heatmap:   render.NewHeatmap(log),
		particles: render.NewParticleField(cfg.Particles, coast, log),
		content:   render.NewCanvas(0, 0),
		heat:      render.NewCanvas(0, 0),
		mask:      render.NewCanvas(0, 0),
		out:       render.NewCanvas(0, 0),
	}
	return r
}

// State returns the current lifecycle state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetViewport installs the initial viewport or applies a programmatic
// move. Dimension changes recreate the canvases and particle population.
func (r *Renderer) SetViewport(vp geo.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyViewportLocked(vp)
}

func (r *Renderer) applyViewportLocked(vp geo.Viewport) {
	if r.state == StateTearingDown {
		return
	}
	resized := vp.Width != r.vp.Width || vp.Height != r.vp.Height
	r.vp = vp
	if resized {
		r.content = render.NewCanvas(vp.Width, vp.Height)
		r.heat = render.NewCanvas(vp.Width, vp.Height)
		r.mask = render.NewCanvas(vp.Width, vp.Height)
		r.out = render.NewCanvas(vp.Width, vp.Height)
		r.particles.Resize(vp.Width, vp.Height, vp)
		r.masker.Invalidate()
		r.heatDirty = true
		r.heatValid = false
	}
	if r.tierKnown || r.state != StateUninitialized {
		r.ensureTierLocked(r.cfg.Selector.Select(vp.Zoom))
	}
}

// SetSamples rebuilds the forecast grid wholesale from scattered
// samples. A nil or empty set clears the grid; consumers render nothing
// until data arrives again.
func (r *Renderer) SetSamples(points []grid.Sample) {
	r.SetGrid(grid.Build(points))
}

// SetGrid installs a prebuilt forecast grid. nil means no data.
func (r *Renderer) SetGrid(g *grid.Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.field = g
	r.heatDirty = true
}

// OnPanStart marks the viewport as moving; mask and heatmap
// re-rasterization pause until movement settles.
func (r *Renderer) OnPanStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.moving = true
	r.stopDebounceLocked()
}

// OnPan applies an intermediate viewport during a pan.
func (r *Renderer) OnPan(vp geo.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.moving = true
	r.applyViewportLocked(vp)
	r.scheduleSettleLocked()
}

// OnPanEnd applies the final viewport of a pan and schedules the settle.
func (r *Renderer) OnPanEnd(vp geo.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.applyViewportLocked(vp)
	r.scheduleSettleLocked()
}

// OnZoomEnd applies the post-zoom viewport, re-selects the resolution
// tier, and schedules the settle.
func (r *Renderer) OnZoomEnd(vp geo.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.moving = true
	r.applyViewportLocked(vp)
	r.scheduleSettleLocked()
}

// OnResize applies a new canvas size.
func (r *Renderer) OnResize(vp geo.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.moving = true
	r.applyViewportLocked(vp)
	r.scheduleSettleLocked()
}

func (r *Renderer) scheduleSettleLocked() {
	r.stopDebounceLocked()
	r.debounceTimer = time.AfterFunc(r.cfg.debounce(), func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.state == StateTearingDown {
			return
		}
		r.moving = false
		r.heatDirty = true
		r.log.Debug("viewport settled")
	})
}

func (r *Renderer) stopDebounceLocked() {
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
		r.debounceTimer = nil
	}
}

// ensureTierLocked kicks off an asynchronous load when the wanted tier is
// neither active, already loaded, nor in flight. A failed load leaves the
// active tier in place; the selector's output is overridden until a later
// attempt succeeds.
func (r *Renderer) ensureTierLocked(tier coastline.Tier) {
	if r.tierKnown && tier == r.activeTier {
		return
	}
	if r.haveTarget && tier == r.targetTier {
		return
	}
	if _, ok := r.coast.Loaded(tier); ok {
		r.targetTier = tier
		r.haveTarget = true
		return
	}
	if r.loading && r.loadingTier == tier {
		return
	}
	r.loading = true
	r.loadingTier = tier
	r.log.Info("loading coastline tier", "tier", tier.String())

	go func() {
		_, err := r.coast.Load(r.ctx, tier)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.loading = false
		if r.state == StateTearingDown {
			return
		}
		if err != nil {
			r.log.Warn("coastline tier load failed, keeping previous tier",
				"tier", tier.String(), "error", err)
			return
		}
		r.targetTier = tier
		r.haveTarget = true
	}()
}

// activeSetLocked resolves the polygon set to rasterize: a freshly
// loaded target tier wins, otherwise the established tier.
func (r *Renderer) activeSetLocked() (*coastline.PolygonSet, bool) {
	if r.haveTarget {
		if set, ok := r.coast.Loaded(r.targetTier); ok {
			return set, true
		}
		r.haveTarget = false
	}
	if r.tierKnown {
		if set, ok := r.coast.Loaded(r.activeTier); ok {
			return set, true
		}
	}
	return nil, false
}

// Frame renders one animation frame and returns the composed image, or
// nil when there is nothing to draw yet. It never blocks: before the
// land mask for the current tier and viewport has been rasterized at
// least once the frame is skipped, to be retried on the next tick.
func (r *Renderer) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateTearingDown:
		return nil
	case StateUninitialized:
		if !r.vp.Valid() {
			return nil
		}
		r.state = StateLoadingMask
		r.log.Debug("renderer state", "state", r.state.String())
		r.ensureTierLocked(r.cfg.Selector.Select(r.vp.Zoom))
		return nil
	case StateLoadingMask:
		if !r.rasterizeMaskLocked() {
			return nil // mask not ready; skip the frame
		}
		r.state = StateReady
		r.log.Debug("renderer state", "state", r.state.String())
	case StateReady:
		r.rasterizeMaskLocked()
	}

	if !r.out.OK() || r.field == nil {
		return nil
	}

	r.out.Clear()
	if r.cfg.ShowHeatmap {
		if r.heatDirty && !r.moving {
			r.heatmap.Render(r.heat, r.vp, r.field, r.cfg.Heatmap)
			r.heatOriginX, r.heatOriginY = r.vp.Origin()
			r.heatZoom = r.vp.Zoom
			r.heatValid = true
			r.heatDirty = false
		} else if r.heatValid && r.vp.Zoom == r.heatZoom {
			// Reposition the existing raster by the origin delta so it
			// tracks the pan until the settle re-renders it.
			ox, oy := r.vp.Origin()
			dx := int(math.Round(r.heatOriginX - ox))
			dy := int(math.Round(r.heatOriginY - oy))
			if dx != 0 || dy != 0 {
				r.heat.Shift(dx, dy)
				r.heatOriginX -= float64(dx)
				r.heatOriginY -= float64(dy)
			}
		}
		render.Over(r.out, r.heat)
	}
	if r.cfg.ShowParticles {
		r.particles.Step(r.content, r.vp, r.field)
		render.Over(r.out, r.content)
	}

	// Erase everything that falls on land. The mask always covers the
	// current viewport, so land scrolling in during a pan is clipped on
	// the same frame it appears.
	render.Compose(r.out, r.mask)
	return r.out.Image()
}

// rasterizeMaskLocked keeps the land mask aligned with the viewport and
// reports whether a mask for the current tier has ever been established.
// The mask follows every viewport change immediately; only the edge blur
// is deferred to the debounced settle. The cached rasterizer skips the
// work when nothing changed.
func (r *Renderer) rasterizeMaskLocked() bool {
	set, ok := r.activeSetLocked()
	if !ok {
		return false
	}
	if !r.mask.OK() {
		return false
	}

	firstForTier := !r.tierKnown || set.Tier != r.activeTier
	r.masker.Render(r.mask, set, r.vp, r.cfg.Mask, r.moving)
	if firstForTier {
		r.activeTier = set.Tier
		r.tierKnown = true
		r.haveTarget = false
		r.log.Info("land mask established", "tier", set.Tier.String())
	}
	return true
}

// Close tears the renderer down: pending loads are cancelled, debounce
// timers stopped, and every later Frame or event call becomes a no-op.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateTearingDown {
		return
	}
	r.state = StateTearingDown
	r.stopDebounceLocked()
	r.cancel()
	r.masker.Invalidate()
	r.field = nil
	r.log.Debug("renderer state", "state", r.state.String())
}
