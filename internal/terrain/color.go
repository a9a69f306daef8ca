package terrain

import (
	"math"

	"voxelgen/internal/world"
)

const (
	colorBands       = 25
	lowLODBands      = 5
	jitterUnderWater = 0.02
	jitterAboveWater = 0.06
)

// Gradient is a vertical color ramp sampled from bottom (0) to top (1).
type Gradient []world.RGB

var (
	groundGradient = Gradient{
		{R: 0xc2, G: 0xb2, B: 0x80}, // sand
		{R: 0x6a, G: 0x9c, B: 0x3f}, // grass
		{R: 0x4e, G: 0x7a, B: 0x2e},
		{R: 0x7d, G: 0x6b, B: 0x55}, // rock
		{R: 0xee, G: 0xee, B: 0xf2}, // snow
	}
	edgeGradient = Gradient{
		{R: 0x8a, G: 0x6f, B: 0x4d},
		{R: 0x74, G: 0x5a, B: 0x3e},
		{R: 0x5f, G: 0x4b, B: 0x36},
		{R: 0x6e, G: 0x66, B: 0x5f},
	}
	featureColor = world.RGB{R: 0x5c, G: 0xb8, B: 0x3a}
)

// At returns the color at t in [0, 1], linearly interpolated between stops.
func (g Gradient) At(t float64) world.RGB {
	if len(g) == 0 {
		return world.RGB{}
	}
	if len(g) == 1 {
		return g[0]
	}
	t = clamp(t, 0, 1)
	pos := t * float64(len(g)-1)
	i := int(pos)
	if i >= len(g)-1 {
		return g[len(g)-1]
	}
	frac := pos - float64(i)
	a, b := g[i], g[i+1]
	return world.RGB{
		R: lerpChannel(a.R, b.R, frac),
		G: lerpChannel(a.G, b.G, frac),
		B: lerpChannel(a.B, b.B, frac),
	}
}

// ComputeColor maps a normalized height into one of 25 discrete bands of
// the gradient. Quantizing after jitter keeps neighboring voxels in the same
// band unless the jitter pushes them across a band boundary.
func ComputeColor(adjustedY float64, g Gradient, jitter float64) world.RGB {
	return g.At(band(adjustedY+jitter, colorBands))
}

// ComputeLowLODColor is the coarse variant used for distant rendering.
func ComputeLowLODColor(adjustedY float64, g Gradient) world.RGB {
	return g.At(band(adjustedY, lowLODBands))
}

func band(t float64, bands int) float64 {
	t = clamp(t, 0, 1)
	idx := math.Floor(t * float64(bands))
	if idx >= float64(bands) {
		idx = float64(bands - 1)
	}
	return idx / float64(bands-1)
}

// jitter returns a deterministic offset in [-amplitude, amplitude] for a cell.
func jitter(x, y, z int, amplitude float64) float64 {
	h := hash3(x, y, z)
	return (float64(h)/math.MaxUint32*2 - 1) * amplitude
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
