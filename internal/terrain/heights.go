package terrain

import (
	"math"

	"voxelgen/internal/config"
	"voxelgen/internal/noise"
)

const (
	plateauStep    = 0.3
	smoothedScale  = 0.66
	peakCurve      = 1.3
	peakExponent   = 8
	peakCap        = 0.75
	peakOffset     = 1000
	bridgeCap      = 0.2
	bridgeLift     = 1
	defaultDropoff = 3

	// Feature sizes of the surface fields, in blocks per noise unit.
	terrainScale = 96.0
	plateauScale = 128.0
	bridgeScale  = 64.0
)

// Heights composes the named height surfaces of one generator instance.
// Every surface is a pure function of the integer column (x, z) and is
// memoized in a bounded cache owned by the instance.
type Heights struct {
	maxHeight  float64
	waterLevel float64
	dropoff    float64
	plateaus   bool

	terrainField *noise.Tiled
	plateauField *noise.Tiled
	bridgeField  *noise.Tiled

	terrain *noise.Cache
	plateau *noise.Cache
	smooth  *noise.Cache
	peak    *noise.Cache
	bridge  *noise.Cache
	land    *noise.Cache
}

// NewHeights builds the height surfaces for seed. Without plateaus the
// land surface follows the terrain surface alone.
func NewHeights(seed string, cfg config.TerrainConfig, plateaus bool) *Heights {
	entries := cfg.CacheEntries
	if entries <= 0 {
		entries = 1 << 12
	}
	dropoff := cfg.MinEdgeDropoff
	if dropoff <= 0 {
		dropoff = defaultDropoff
	}
	tiled := func(suffix string, scale float64) *noise.Tiled {
		span := cfg.WorldSize / scale
		return noise.NewTiled(noise.New4D(seed+"/"+suffix), cfg.WorldSize, 0, span, 0, span, 0)
	}
	return &Heights{
		maxHeight:    cfg.MaxHeight,
		waterLevel:   cfg.WaterLevel,
		dropoff:      dropoff,
		plateaus:     plateaus,
		terrainField: tiled("terrain", terrainScale),
		plateauField: tiled("plateau", plateauScale),
		bridgeField:  tiled("bridge", bridgeScale),
		terrain:      noise.NewCache(entries),
		plateau:      noise.NewCache(entries),
		smooth:       noise.NewCache(entries),
		peak:         noise.NewCache(entries),
		bridge:       noise.NewCache(entries),
		land:         noise.NewCache(entries),
	}
}

// Terrain is the base surface, |n| * 2 * maxHeight clamped to maxHeight.
func (h *Heights) Terrain(x, z int) float64 {
	return h.terrain.Memo(x, z, func(x, z int) float64 {
		n := h.terrainField.At(float64(x), float64(z))
		return math.Min(math.Abs(n)*2*h.maxHeight, h.maxHeight)
	})
}

func (h *Heights) plateauLevel(x, z int) float64 {
	n := h.plateauField.At(float64(x), float64(z))
	return math.Min(math.Abs(n)*2, 1)
}

// Plateau quantizes the plateau field into terraces of plateauStep.
func (h *Heights) Plateau(x, z int) float64 {
	return h.plateau.Memo(x, z, func(x, z int) float64 {
		v := h.plateauLevel(x, z)
		return math.Floor(v/plateauStep) * plateauStep * h.maxHeight
	})
}

// SmoothedPlateau is the unquantized plateau surface.
func (h *Heights) SmoothedPlateau(x, z int) float64 {
	return h.smooth.Memo(x, z, func(x, z int) float64 {
		return h.plateauLevel(x, z) * h.maxHeight * smoothedScale
	})
}

// Peak remaps the terrain at an offset column through an eighth power curve.
// Only already elevated terrain yields noticeable peaks.
func (h *Heights) Peak(x, z int) float64 {
	return h.peak.Memo(x, z, func(x, z int) float64 {
		t := h.Terrain(x+peakOffset, z+peakOffset) / h.maxHeight
		v := math.Pow(peakCurve*t, peakExponent) * h.maxHeight
		return math.Min(v, peakCap*h.maxHeight)
	})
}

// Bridge is a low amplitude surface clamped to [waterLevel, 0.2*maxHeight]
// and lifted by one block.
func (h *Heights) Bridge(x, z int) float64 {
	return h.bridge.Memo(x, z, func(x, z int) float64 {
		n := h.bridgeField.At(float64(x), float64(z))
		v := math.Abs(n) * h.maxHeight
		v = math.Max(v, h.waterLevel)
		v = math.Min(v, math.Max(bridgeCap*h.maxHeight, h.waterLevel))
		return v + bridgeLift
	})
}

// Land is the walkable surface height. It never exceeds maxHeight.
func (h *Heights) Land(x, z int) float64 {
	return h.land.Memo(x, z, func(x, z int) float64 {
		base := h.Terrain(x, z)
		if h.plateaus {
			base = math.Min(base, h.Plateau(x, z))
		}
		return math.Min(base+h.waterLevel/3, h.maxHeight)
	})
}

// IsPlateau reports whether the column is cut down to a plateau terrace.
func (h *Heights) IsPlateau(x, z int) bool {
	return h.plateaus && h.Plateau(x, z) < h.Terrain(x, z)
}

// IsEdge reports whether any diagonal neighbor's land lies more than the
// minimum edge dropoff below land.
func (h *Heights) IsEdge(x, z int, land float64) bool {
	for i := -1; i <= 1; i += 2 {
		for j := -1; j <= 1; j += 2 {
			if h.Land(x+i, z+j) < land-h.dropoff {
				return true
			}
		}
	}
	return false
}
