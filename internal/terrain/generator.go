// Package terrain implements the procedural terrain variants: composed
// height surfaces, per-voxel classification and decorative feature placement.
package terrain

import (
	"errors"
	"fmt"
	"sort"

	"voxelgen/internal/blocks"
	"voxelgen/internal/config"
	"voxelgen/internal/noise"
	"voxelgen/internal/world"
)

const (
	Islands = "islands"
	Hilly   = "hilly"
	Flat    = "flat"
)

var ErrUnknownGenerator = errors.New("unknown generator")

// regionFrequency keeps bridge regions a few hundred blocks across.
const regionFrequency = 1.0 / 300

type variant struct {
	plateaus  bool
	peaks     bool
	overhangs bool
	bridges   bool
	features  bool
	// flatness requires level ground around a feature.
	flatness bool
	flat     bool
}

var variants = map[string]variant{
	Islands: {plateaus: true, peaks: true, overhangs: true, bridges: true, features: true, flatness: true},
	Hilly:   {overhangs: true, features: true},
	Flat:    {flat: true},
}

// Kinds lists the known generator variants.
func Kinds() []string {
	kinds := make([]string, 0, len(variants))
	for kind := range variants {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Known reports whether kind names a generator variant.
func Known(kind string) bool {
	_, ok := variants[kind]
	return ok
}

// Generator classifies voxels for one (variant, seed) pair. Its caches are
// private to the instance; concurrent generations should use separate
// instances.
type Generator struct {
	kind    string
	seed    string
	cfg     config.TerrainConfig
	variant variant

	heights  *Heights
	region   *noise.Region
	features noise.Field2D
}

// New builds a generator of the given variant. Unknown variants are a
// configuration error.
func New(kind, seed string, cfg config.TerrainConfig) (*Generator, error) {
	v, ok := variants[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownGenerator, kind)
	}
	if cfg.MaxHeight <= 0 {
		return nil, fmt.Errorf("generator %s: maxHeight must be positive", kind)
	}
	if cfg.WorldSize <= 0 {
		return nil, fmt.Errorf("generator %s: worldSize must be positive", kind)
	}
	g := &Generator{
		kind:    kind,
		seed:    seed,
		cfg:     cfg,
		variant: v,
	}
	if !v.flat {
		g.heights = NewHeights(seed, cfg, v.plateaus)
	}
	if v.bridges {
		g.region = noise.NewRegion(seed+"/bridge-region", regionFrequency)
	}
	if v.features {
		g.features = noise.New2D(seed + "/feature")
	}
	return g, nil
}

func (g *Generator) Kind() string {
	return g.kind
}

func (g *Generator) Seed() string {
	return g.seed
}

// Heights exposes the composed height surfaces. It is nil for the flat variant.
func (g *Generator) Heights() *Heights {
	return g.heights
}

// NewPass returns the per-generation context for one chunk volume.
func (g *Generator) NewPass(origin world.BlockCoord, size world.Size) world.Pass {
	p := &pass{gen: g}
	if g.variant.features {
		p.presence = NewPresence(origin, size)
	}
	return p
}

type pass struct {
	gen      *Generator
	presence *Presence
}

func (p *pass) Terrain(x, y, z int) world.Voxel {
	v := p.gen.Terrain(x, y, z)
	if p.presence != nil {
		p.presence.Record(x, y, z, !v.IsAir())
	}
	return v
}

func (p *pass) Feature(x, y, z int, current blocks.ID) (world.Voxel, bool) {
	if !p.gen.placeFeature(x, y, z, current, p.solid) {
		return world.Voxel{}, false
	}
	return featureVoxel(), true
}

func (p *pass) solid(x, y, z int) bool {
	if p.presence != nil {
		if solid, known := p.presence.Solid(x, y, z); known {
			return solid
		}
	}
	return p.gen.solid(x, y, z)
}
