package render

// RampStop anchors a color at a scalar value.
type RampStop struct {
	Value   float64
	R, G, B uint8
}

// Ramp maps scalar values to colors by linear interpolation between
// stops. Stops must be sorted by ascending value; values outside the stop
// range clamp to the end colors.
type Ramp []RampStop

// At returns the interpolated color for v.
func (r Ramp) At(v float64) (uint8, uint8, uint8) {
	if len(r) == 0 {
		return 0, 0, 0
	}
	if v <= r[0].Value {
		return r[0].R, r[0].G, r[0].B
	}
	last := r[len(r)-1]
	if v >= last.Value {
		return last.R, last.G, last.B
	}
	for i := 1; i < len(r); i++ {
		if v > r[i].Value {
			continue
		}
		lo, hi := r[i-1], r[i]
		t := (v - lo.Value) / (hi.Value - lo.Value)
		return lerpByte(lo.R, hi.R, t), lerpByte(lo.G, hi.G, t), lerpByte(lo.B, hi.B, t)
	}
	return last.R, last.G, last.B
}

func lerpByte(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// WaveHeightRamp is the default wave-height coloring in meters, running
// from calm blue through green and yellow to storm red.
var WaveHeightRamp = Ramp{
	{Value: 0, R: 0x27, G: 0x6b, B: 0xb8},
	{Value: 1, R: 0x2e, G: 0x9e, B: 0xa6},
	{Value: 2, R: 0x55, G: 0xb8, B: 0x4d},
	{Value: 3.5, R: 0xd8, G: 0xc8, B: 0x3a},
	{Value: 5, R: 0xd8, G: 0x7c, B: 0x2e},
	{Value: 8, R: 0xc2, G: 0x32, B: 0x2a},
}
