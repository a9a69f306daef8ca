package terrain

import (
	"math"

	"voxelgen/internal/blocks"
	"voxelgen/internal/world"
)

// peakMinimum is the share of maxHeight the base terrain must exceed
// before a peak may rise from it.
const peakMinimum = 0.25

// Terrain classifies the voxel at a global coordinate. It is a pure
// function of the seed and coordinate; cache state never changes the result.
func (g *Generator) Terrain(x, y, z int) world.Voxel {
	if g.variant.flat {
		if float64(y) > g.cfg.WaterLevel+1 {
			return world.Voxel{}
		}
		return g.colored(x, y, z, world.PaletteGround)
	}

	h := g.heights
	fy := float64(y)
	terrain := h.Terrain(x, z)
	land := h.Land(x, z)
	isPlateau := h.IsPlateau(x, z)
	overWater := land < g.cfg.WaterLevel+1

	isPeak := false
	if g.variant.peaks && !isPlateau && !overWater && terrain > peakMinimum*g.cfg.MaxHeight {
		peak := h.Peak(x, z)
		isPeak = peak >= terrain && fy <= peak
	}

	gap := false
	if g.variant.overhangs && !isPeak && fy < land-1 {
		gap = h.IsEdge(x, z, land) && (!isPlateau || fy > h.Plateau(x, z))
	}

	bridge := false
	if g.variant.bridges && g.region.At(float64(x), float64(z)) > g.cfg.BridgeThreshold {
		floor := land * smoothedScale
		if isPlateau {
			floor = h.SmoothedPlateau(x, z)
		}
		bridge = fy <= math.Max(h.Bridge(x, z), floor)
		if bridge {
			gap = false
		}
	}

	isLand := fy <= land && !gap
	if !isLand && !bridge && !isPeak {
		return world.Voxel{}
	}

	palette := world.PaletteGround
	if isLand && !isPeak && fy < land-1 && g.steep(x, z, fy) {
		palette = world.PaletteEdge
	}
	return g.colored(x, y, z, palette)
}

// steep reports whether a land cell sits on a dropoff: some diagonal
// neighbor's surface lies below the cell. A neighbor that is itself an edge
// is skipped in favor of the column one step further out.
func (g *Generator) steep(x, z int, y float64) bool {
	h := g.heights
	for i := -1; i <= 1; i += 2 {
		for j := -1; j <= 1; j += 2 {
			nx, nz := x+i, z+j
			neighbor := h.Land(nx, nz)
			if h.IsEdge(nx, nz, neighbor) {
				nx, nz = nx+i, nz+j
				neighbor = h.Land(nx, nz)
			}
			if neighbor < y {
				return true
			}
		}
	}
	return false
}

func (g *Generator) colored(x, y, z int, palette world.PaletteClass) world.Voxel {
	gradient := groundGradient
	if palette == world.PaletteEdge {
		gradient = edgeGradient
	}
	amplitude := jitterAboveWater
	if float64(y) < g.cfg.WaterLevel {
		amplitude = jitterUnderWater
	}
	adjustedY := float64(y) / g.cfg.MaxHeight
	return world.Voxel{
		Type:        blocks.Dirt,
		Color:       ComputeColor(adjustedY, gradient, jitter(x, y, z, amplitude)),
		LowLODColor: ComputeLowLODColor(adjustedY, gradient),
		Palette:     palette,
	}
}

func (g *Generator) solid(x, y, z int) bool {
	return !g.Terrain(x, y, z).IsAir()
}
