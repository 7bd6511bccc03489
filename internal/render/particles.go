package render

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/coastflow/coastflow/internal/geo"
	"github.com/coastflow/coastflow/internal/grid"
	"github.com/coastflow/coastflow/internal/logutil"
)

// LandChecker is the authoritative ocean test used when respawning
// particles. It is exact polygon containment, not the grid's approximate
// per-cell mask.
type LandChecker interface {
	PointInLand(lat, lng float64) bool
}

// ParticleConfig tunes the particle field.
type ParticleConfig struct {
	Count     int     // population size
	BaseSpeed float64 // pixels per frame per unit of field value
	MinAge    int     // frames
	MaxAge    int     // frames
	// FadeFactor multiplies trail alpha each frame; closer to 1 leaves
	// longer trails.
	FadeFactor float64
	// MinValue respawns particles that drift into regions where the
	// field magnitude falls below it.
	MinValue float64
	// MaxValue is the field magnitude at which stroke alpha saturates.
	MaxValue float64
	// RespawnTries bounds rejection sampling against the land check.
	RespawnTries int
	LineWidth    float64
	R, G, B      uint8
}

// DefaultParticleConfig is tuned for wind in knots.
func DefaultParticleConfig() ParticleConfig {
	return ParticleConfig{
		Count:        1500,
		BaseSpeed:    0.18,
		MinAge:       40,
		MaxAge:       160,
		FadeFactor:   0.92,
		MinValue:     0.1,
		MaxValue:     30,
		RespawnTries: 10,
		LineWidth:    1.2,
		R:            0xff, G: 0xff, B: 0xff,
	}
}

// Particle lives in canvas pixel space and is owned exclusively by the
// field; the population is recreated wholesale on canvas resize.
type Particle struct {
	X, Y         float64
	PrevX, PrevY float64
	Age          int
	MaxAge       int
	SpeedMult    float64
}

// ParticleField advects a fixed-size particle population through the
// vector field and draws fading trails.
type ParticleField struct {
	cfg  ParticleConfig
	land LandChecker
	rng  *rand.Rand
	log  *slog.Logger

	particles []Particle
	w, h      int
}

// NewParticleField creates a field. land may be nil, in which case
// respawn sampling accepts any position.
func NewParticleField(cfg ParticleConfig, land LandChecker, log *slog.Logger) *ParticleField {
	if cfg.Count <= 0 {
		cfg.Count = DefaultParticleConfig().Count
	}
	if cfg.RespawnTries <= 0 {
		cfg.RespawnTries = 10
	}
	if cfg.MaxAge <= cfg.MinAge {
		cfg.MaxAge = cfg.MinAge + 1
	}
	return &ParticleField{
		cfg:  cfg,
		land: land,
		rng:  rand.New(rand.NewSource(rand.Int63())),
		log:  logutil.Or(log),
	}
}

// Resize destroys and recreates the population for a new canvas size.
// Particles spawn with a random initial age so respawns stay staggered.
func (f *ParticleField) Resize(w, h int, vp geo.Viewport) {
	f.w, f.h = w, h
	if w <= 0 || h <= 0 {
		f.particles = nil
		return
	}
	f.particles = make([]Particle, f.cfg.Count)
	for i := range f.particles {
		p := &f.particles[i]
		f.place(p, vp)
		p.Age = f.rng.Intn(p.MaxAge)
	}
	f.log.Debug("particle population created", "count", len(f.particles))
}

// Population returns the live particle count.
func (f *ParticleField) Population() int { return len(f.particles) }

// Step advances every particle one frame and draws its trail segment
// into dst. The previous frame's trails are uniformly faded first. A
// particle over a non-ocean cell, past its age limit, outside the canvas,
// or in a region below the minimum field value is respawned within the
// same step and draws nothing this frame.
func (f *ParticleField) Step(dst *Canvas, vp geo.Viewport, g *grid.Cache) {
	if !dst.OK() || g == nil || !vp.Valid() || len(f.particles) == 0 {
		return
	}

	dst.Fade(f.cfg.FadeFactor)

	dc := dst.Ctx()
	dc.SetLineWidth(f.cfg.LineWidth)

	for i := range f.particles {
		p := &f.particles[i]
		p.Age++

		pt := vp.Unproject(p.X, p.Y)
		v, okV := g.Interpolate(pt.Lat, pt.Lng)
		ang, okA := g.InterpolateAngle(pt.Lat, pt.Lng)

		switch {
		case p.Age >= p.MaxAge,
			p.X < 0, p.X >= float64(f.w), p.Y < 0, p.Y >= float64(f.h),
			!g.OceanAt(pt.Lat, pt.Lng),
			!okV, !okA,
			v < f.cfg.MinValue:
			f.respawn(p, vp)
			continue
		}

		speed := v * f.cfg.BaseSpeed * p.SpeedMult
		p.PrevX, p.PrevY = p.X, p.Y
		// ang is a geographic bearing: 0 toward north, clockwise.
		// Canvas y grows southward.
		p.X += math.Sin(ang) * speed
		p.Y -= math.Cos(ang) * speed

		alpha := v / f.cfg.MaxValue
		if alpha > 1 {
			alpha = 1
		}
		dc.SetRGBA(float64(f.cfg.R)/255, float64(f.cfg.G)/255, float64(f.cfg.B)/255, alpha)
		dc.DrawLine(p.PrevX, p.PrevY, p.X, p.Y)
		if err := dc.Stroke(); err != nil {
			f.log.Debug("trail stroke failed", "error", err)
		}
	}
}

// place positions a particle at a random ocean location, rejection
// sampling against the land check. When every try lands on land the last
// sample is accepted but the particle is expired so it recycles next
// step without ever drawing over land for more than that single frame.
func (f *ParticleField) place(p *Particle, vp geo.Viewport) {
	p.MaxAge = f.cfg.MinAge + f.rng.Intn(f.cfg.MaxAge-f.cfg.MinAge)
	p.SpeedMult = 0.6 + f.rng.Float64()*0.8
	p.Age = 0

	for try := 0; try < f.cfg.RespawnTries; try++ {
		x := f.rng.Float64() * float64(f.w)
		y := f.rng.Float64() * float64(f.h)
		pt := vp.Unproject(x, y)
		if f.land == nil || !f.land.PointInLand(pt.Lat, pt.Lng) {
			p.X, p.Y = x, y
			p.PrevX, p.PrevY = x, y
			return
		}
		if try == f.cfg.RespawnTries-1 {
			// Accepted imprecision near complex coastlines: keep the
			// last sample but expire immediately.
			p.X, p.Y = x, y
			p.PrevX, p.PrevY = x, y
			p.Age = p.MaxAge
		}
	}
}

func (f *ParticleField) respawn(p *Particle, vp geo.Viewport) {
	f.place(p, vp)
}
