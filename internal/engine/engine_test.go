package engine

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coastflow/coastflow/internal/coastline"
	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
)

// fakeCoast serves canned polygon sets per tier. Tiers listed in errs
// fail every Load; the rest become visible through Loaded only after a
// Load call, mirroring the store's fetch-then-cache behavior.
type fakeCoast struct {
	mu     sync.Mutex
	avail  map[coastline.Tier]*coastline.PolygonSet
	errs   map[coastline.Tier]error
	loaded map[coastline.Tier]*coastline.PolygonSet
	loads  atomic.Int32
}

func newFakeCoast() *fakeCoast {
	return &fakeCoast{
		avail:  make(map[coastline.Tier]*coastline.PolygonSet),
		errs:   make(map[coastline.Tier]error),
		loaded: make(map[coastline.Tier]*coastline.PolygonSet),
	}
}

func (f *fakeCoast) Load(ctx context.Context, tier coastline.Tier) (*coastline.PolygonSet, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[tier]; ok {
		return nil, err
	}
	set, ok := f.avail[tier]
	if !ok {
		return nil, errors.New("tier not provisioned")
	}
	f.loaded[tier] = set
	return set, nil
}

func (f *fakeCoast) Loaded(tier coastline.Tier) (*coastline.PolygonSet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.loaded[tier]
	return set, ok
}

func (f *fakeCoast) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loaded) > 0
}

func (f *fakeCoast) PointInLand(lat, lng float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.loaded {
		if set.Contains(lat, lng) {
			return true
		}
	}
	return false
}

// westLandSet is a single landmass covering all longitudes west of the
// prime meridian within the test viewport.
func westLandSet(tier coastline.Tier) *coastline.PolygonSet {
	outer := coastline.Ring{
		{Lat: -20, Lng: -60},
		{Lat: -20, Lng: 0},
		{Lat: 20, Lng: 0},
		{Lat: 20, Lng: -60},
	}
	return coastline.NewPolygonSet(tier, []coastline.Polygon{coastline.NewPolygon(outer)})
}

// testViewport covers roughly 5.6 degrees of longitude centered on the
// equator at the prime meridian.
func testViewport(zoom float64) geo.Viewport {
	return geo.Viewport{Width: 64, Height: 64, Zoom: zoom, Center: geo.Point{Lat: 0, Lng: 0}}
}

func testSamples() []grid.Sample {
	var out []grid.Sample
	for _, lat := range []float64{-6, 0, 6} {
		for _, lng := range []float64{-6, 0, 6} {
			out = append(out, grid.Sample{
				Lat: lat, Lng: lng, Value: 3,
				Direction: 270, HasDirection: true,
			})
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DebounceDelay = 10 * time.Millisecond
	return cfg
}

func waitFrame(t *testing.T, r *Renderer) *image.RGBA {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if img := r.Frame(); img != nil {
			return img
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no frame produced before deadline")
	return nil
}

func TestFrameSkippedUntilMaskEstablished(t *testing.T) {
	coast := newFakeCoast()
	coast.errs[coastline.TierCoarse] = errors.New("network down")

	r := New(coast, testConfig())
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())

	for i := 0; i < 20; i++ {
		if img := r.Frame(); img != nil {
			t.Fatal("frame produced before any land mask was rasterized")
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := r.State(); got != StateLoadingMask {
		t.Errorf("state = %v, want %v", got, StateLoadingMask)
	}

	// The particle trail canvas must never have been drawn to.
	r.mu.Lock()
	defer r.mu.Unlock()
	for y := 0; y < 64; y += 8 {
		for x := 0; x < 64; x += 8 {
			if a := r.content.AlphaAt(x, y); a != 0 {
				t.Fatalf("trail canvas alpha %d at (%d,%d) before mask ready", a, x, y)
			}
		}
	}
}

func TestFrameClipsLand(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)

	r := New(coast, testConfig())
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())

	img := waitFrame(t, r)
	if got := r.State(); got != StateReady {
		t.Fatalf("state = %v, want %v", got, StateReady)
	}

	// Deep inside the landmass every composed pixel must be fully
	// transparent; well offshore the heatmap shows through.
	if a := img.RGBAAt(8, 32).A; a != 0 {
		t.Errorf("land pixel alpha = %d, want 0", a)
	}
	if a := img.RGBAAt(56, 32).A; a == 0 {
		t.Error("ocean pixel alpha = 0, want painted heatmap")
	}
}

func TestFrameNilWithoutForecastData(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)

	r := New(coast, testConfig())
	defer r.Close()
	r.SetViewport(testViewport(3))

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if img := r.Frame(); img != nil {
			t.Fatal("frame produced with no forecast grid")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTierLoadFailureKeepsPreviousMask(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)
	coast.errs[coastline.TierFine] = errors.New("tier unavailable")

	r := New(coast, testConfig())
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())
	waitFrame(t, r)

	before := coast.loads.Load()
	r.OnZoomEnd(testViewport(9))

	// Wait for the fine-tier load attempt to fail.
	deadline := time.Now().Add(2 * time.Second)
	for coast.loads.Load() == before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if coast.loads.Load() == before {
		t.Fatal("fine tier load never attempted")
	}
	time.Sleep(20 * time.Millisecond)

	img := waitFrame(t, r)
	if a := img.RGBAAt(8, 32).A; a != 0 {
		t.Errorf("land pixel alpha = %d after failed tier switch, want 0", a)
	}

	r.mu.Lock()
	tier := r.activeTier
	r.mu.Unlock()
	if tier != coastline.TierCoarse {
		t.Errorf("active tier = %v after failed fine load, want coarse", tier)
	}
}

func TestTierSwitchOnZoom(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)
	coast.avail[coastline.TierFine] = westLandSet(coastline.TierFine)

	r := New(coast, testConfig())
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())
	waitFrame(t, r)

	r.OnZoomEnd(testViewport(9))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.Frame()
		r.mu.Lock()
		tier := r.activeTier
		r.mu.Unlock()
		if tier == coastline.TierFine {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("renderer never switched to the fine tier")
}

func TestCloseStopsRenderer(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)

	r := New(coast, testConfig())
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())
	waitFrame(t, r)

	r.Close()
	r.Close() // idempotent

	if img := r.Frame(); img != nil {
		t.Error("frame produced after Close")
	}
	// Event callbacks after teardown must be harmless no-ops.
	r.OnPanStart()
	r.OnPan(testViewport(4))
	r.OnPanEnd(testViewport(4))
	r.OnZoomEnd(testViewport(9))
	r.OnResize(geo.Viewport{Width: 128, Height: 128, Zoom: 3})
	r.SetSamples(testSamples())
	if got := r.State(); got != StateTearingDown {
		t.Errorf("state = %v, want %v", got, StateTearingDown)
	}
}

func TestFrameRequiresViewport(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)

	r := New(coast, testConfig())
	defer r.Close()
	r.SetSamples(testSamples())

	if img := r.Frame(); img != nil {
		t.Error("frame produced with no viewport set")
	}
	if got := r.State(); got != StateUninitialized {
		t.Errorf("state = %v, want %v", got, StateUninitialized)
	}
}

func TestMaskTracksPanImmediately(t *testing.T) {
	coast := newFakeCoast()
	coast.avail[coastline.TierCoarse] = westLandSet(coastline.TierCoarse)

	cfg := testConfig()
	cfg.DebounceDelay = time.Hour // never settles during the test
	r := New(coast, cfg)
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())
	waitFrame(t, r)

	// Pan east by half a degree. The mask is re-rasterized for the new
	// origin on the same frame, so land stays clipped at its new pixel
	// position and the former coastline column becomes open water.
	r.OnPanStart()
	moved := testViewport(3)
	moved.Center = geo.Point{Lat: 0, Lng: 0.5}
	r.OnPan(moved)

	img := waitFrame(t, r)
	if a := img.RGBAAt(4, 32).A; a != 0 {
		t.Errorf("land pixel alpha = %d during pan, want 0", a)
	}
	if a := img.RGBAAt(40, 32).A; a == 0 {
		t.Error("ocean pixel alpha = 0 during pan, want repositioned content")
	}
}

func TestPanClipsEnteringLand(t *testing.T) {
	coast := newFakeCoast()
	// A landmass entirely west of the initial viewport.
	outer := coastline.Ring{
		{Lat: -20, Lng: -60},
		{Lat: -20, Lng: -10},
		{Lat: 20, Lng: -10},
		{Lat: 20, Lng: -60},
	}
	coast.avail[coastline.TierCoarse] = coastline.NewPolygonSet(
		coastline.TierCoarse, []coastline.Polygon{coastline.NewPolygon(outer)})

	cfg := testConfig()
	cfg.DebounceDelay = time.Hour // never settles during the test
	r := New(coast, cfg)
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())

	img := waitFrame(t, r)
	if a := img.RGBAAt(8, 32).A; a == 0 {
		t.Fatal("expected painted open water before the pan")
	}

	// Pan west until the landmass covers the left half of the canvas.
	// It must be clipped from the first frame, not after the settle.
	r.OnPanStart()
	moved := testViewport(3)
	moved.Center = geo.Point{Lat: 0, Lng: -10}
	r.OnPan(moved)

	img = waitFrame(t, r)
	if a := img.RGBAAt(8, 32).A; a != 0 {
		t.Errorf("entering land pixel alpha = %d during pan, want 0", a)
	}
}

func TestHeatmapRepositionedDuringPan(t *testing.T) {
	coast := newFakeCoast()
	// All ocean: an empty polygon set keeps the mask clear everywhere.
	coast.avail[coastline.TierCoarse] = coastline.NewPolygonSet(coastline.TierCoarse, nil)

	cfg := testConfig()
	cfg.DebounceDelay = time.Hour // never settles during the test
	cfg.ShowParticles = false
	r := New(coast, cfg)
	defer r.Close()
	r.SetViewport(testViewport(3))
	r.SetSamples(testSamples())
	waitFrame(t, r)

	// Panning east shifts the stale heatmap raster west; the strip that
	// scrolled in on the right has no data yet and stays transparent.
	r.OnPanStart()
	moved := testViewport(3)
	moved.Center = geo.Point{Lat: 0, Lng: 0.5}
	r.OnPan(moved)

	img := waitFrame(t, r)
	if a := img.RGBAAt(30, 32).A; a == 0 {
		t.Error("shifted heatmap pixel alpha = 0, want painted")
	}
	if a := img.RGBAAt(63, 32).A; a != 0 {
		t.Errorf("entering strip alpha = %d, want 0 until the settle", a)
	}
}
