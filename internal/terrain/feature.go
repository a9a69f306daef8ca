package terrain

import (
	"math"

	"voxelgen/internal/blocks"
	"voxelgen/internal/world"
)

const (
	// featureFrequency keeps samples off the simplex lattice so neighboring
	// columns are only loosely correlated.
	featureFrequency = 0.731
	flatnessRadius   = 3
)

// Feature decides whether the cell receives a decorative feature. It returns
// blocks.Feature and true, or blocks.Air and false.
func (g *Generator) Feature(x, y, z int, current blocks.ID) (blocks.ID, bool) {
	if !g.placeFeature(x, y, z, current, g.solid) {
		return blocks.Air, false
	}
	return blocks.Feature, true
}

func (g *Generator) placeFeature(x, y, z int, current blocks.ID, solid func(x, y, z int) bool) bool {
	if !g.variant.features || float64(y) <= g.cfg.WaterLevel || current != blocks.Air {
		return false
	}
	if !g.featureNoise(x, z) {
		return false
	}
	if !solid(x, y-1, z) {
		return false
	}
	return !g.variant.flatness || flatAround(x, y, z, solid)
}

func (g *Generator) featureNoise(x, z int) bool {
	n := g.features.Eval2(float64(x)*featureFrequency, float64(z)*featureFrequency)
	return math.Abs(n) < g.cfg.FeatureThreshold
}

// flatAround requires every column within flatnessRadius to have its ground
// surface at the same level as the feature cell: solid below and open at y.
func flatAround(x, y, z int, solid func(x, y, z int) bool) bool {
	for dx := -flatnessRadius; dx <= flatnessRadius; dx++ {
		for dz := -flatnessRadius; dz <= flatnessRadius; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if !solid(x+dx, y-1, z+dz) || solid(x+dx, y, z+dz) {
				return false
			}
		}
	}
	return true
}

func featureVoxel() world.Voxel {
	return world.Voxel{
		Type:        blocks.Feature,
		Color:       featureColor,
		LowLODColor: featureColor,
		Palette:     world.PaletteGround,
	}
}
