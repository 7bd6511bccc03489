package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/coastflow/coastflow/internal/coastline"
	"github.com/coastflow/coastflow/internal/engine"
	"github.com/coastflow/coastflow/internal/forecast"
	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
)

func main() {
	width := flag.Int("width", 960, "Window width in pixels")
	height := flag.Int("height", 640, "Window height in pixels")
	lat := flag.Float64("lat", 42.35, "Initial center latitude")
	lng := flag.Float64("lng", -70.5, "Initial center longitude")
	zoom := flag.Float64("zoom", 7, "Initial zoom level")
	coastDir := flag.String("coast", "data", "Directory containing provisioned coastline GeoJSON files")
	coastBase := flag.String("coast-url", "", "Remote base URL for coastline tiers (fallback when local files are missing)")
	cachePath := flag.String("cache", "", "SQLite coastline cache path (empty disables caching)")
	dataURL := flag.String("data", "", "Forecast endpoint base URL (empty uses a synthetic demo field)")
	layer := flag.String("layer", "wind", "Forecast layer: wind, wave_height, or current")
	noHeatmap := flag.Bool("no-heatmap", false, "Disable the scalar heatmap layer")
	noParticles := flag.Bool("no-particles", false, "Disable the animated particle layer")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []coastline.StoreOption{coastline.WithLogger(log)}
	if *cachePath != "" {
		db, err := coastline.OpenDB(*cachePath)
		if err != nil {
			fmt.Printf("Error opening coastline cache: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, coastline.WithCacheDB(db))
	}
	store := coastline.NewStore(&coastline.FileFetcher{
		Dir:        *coastDir,
		RemoteBase: *coastBase,
	}, opts...)

	cfg := engine.DefaultConfig()
	cfg.ShowHeatmap = !*noHeatmap
	cfg.ShowParticles = !*noParticles
	cfg.Logger = log
	renderer := engine.New(store, cfg)
	defer renderer.Close()

	vp := geo.Viewport{
		Width:  *width,
		Height: *height,
		Zoom:   *zoom,
		Center: geo.Point{Lat: *lat, Lng: *lng},
	}
	renderer.SetViewport(vp)

	samples, err := loadSamples(*dataURL, forecast.Layer(*layer), vp.Bounds())
	if err != nil {
		fmt.Printf("Error fetching forecast data: %v\n", err)
		os.Exit(1)
	}
	renderer.SetSamples(samples)

	g := &game{renderer: renderer, vp: vp}
	ebiten.SetWindowTitle("coastflow")
	ebiten.SetWindowSize(*width, *height)
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(g); err != nil {
		fmt.Printf("Error running viewer: %v\n", err)
		os.Exit(1)
	}
}

// loadSamples fetches the requested layer, or fabricates a rotating gyre
// centered on the viewport when no endpoint is configured.
func loadSamples(dataURL string, layer forecast.Layer, b geo.Bounds) ([]grid.Sample, error) {
	if dataURL == "" {
		return syntheticGyre(b), nil
	}
	client := forecast.NewClient(dataURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch layer {
	case forecast.LayerWind, forecast.LayerCurrent:
		return client.FetchVectorField(ctx, layer, b)
	default:
		return client.FetchSamples(ctx, layer, b)
	}
}

func syntheticGyre(b geo.Bounds) []grid.Sample {
	c := b.Center()
	latSpan := b.MaxLat - b.MinLat
	lngSpan := b.MaxLng - b.MinLng

	var out []grid.Sample
	const n = 24
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			lat := b.MinLat + latSpan*float64(i)/n
			lng := b.MinLng + lngSpan*float64(j)/n
			dy := (lat - c.Lat) / latSpan
			dx := (lng - c.Lng) / lngSpan
			u, v := -dy, dx // counter-clockwise rotation
			speed := math.Hypot(u, v) * 12
			dirFrom := math.Atan2(u, v)*180/math.Pi + 180
			out = append(out, grid.Sample{
				Lat: lat, Lng: lng,
				Value:        speed,
				Direction:    dirFrom,
				HasDirection: true,
			})
		}
	}
	return out
}

// panStep is the per-tick pan distance in canvas pixels.
const panStep = 6

type game struct {
	renderer *engine.Renderer
	vp       geo.Viewport
	panning  bool
	frame    *ebiten.Image
	scratch  []byte
}

func (g *game) Update() error {
	dx, dy := 0.0, 0.0
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dx -= panStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dx += panStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dy -= panStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dy += panStep
	}

	if dx != 0 || dy != 0 {
		if !g.panning {
			g.renderer.OnPanStart()
			g.panning = true
		}
		g.vp.Center = g.vp.Unproject(float64(g.vp.Width)/2+dx, float64(g.vp.Height)/2+dy)
		g.renderer.OnPan(g.vp)
	} else if g.panning {
		g.panning = false
		g.renderer.OnPanEnd(g.vp)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadAdd) {
		g.vp.Zoom = math.Min(g.vp.Zoom+1, 18)
		g.renderer.OnZoomEnd(g.vp)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadSubtract) {
		g.vp.Zoom = math.Max(g.vp.Zoom-1, 1)
		g.renderer.OnZoomEnd(g.vp)
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	img := g.renderer.Frame()
	if img == nil {
		return // mask not established yet; keep the previous frame
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if g.frame == nil || g.frame.Bounds().Dx() != w || g.frame.Bounds().Dy() != h {
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(w, h)
	}
	// The renderer emits straight-alpha pixels; WritePixels expects
	// premultiplied alpha.
	if cap(g.scratch) < len(img.Pix) {
		g.scratch = make([]byte, len(img.Pix))
	}
	buf := g.scratch[:len(img.Pix)]
	premultiply(buf, img.Pix)
	g.frame.WritePixels(buf)
	screen.DrawImage(g.frame, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.vp.Width, g.vp.Height
}

func premultiply(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		a := uint32(src[i+3])
		dst[i+0] = byte((uint32(src[i+0])*a + 127) / 255)
		dst[i+1] = byte((uint32(src[i+1])*a + 127) / 255)
		dst[i+2] = byte((uint32(src[i+2])*a + 127) / 255)
		dst[i+3] = byte(a)
	}
}
