// Package noise provides the seeded continuous noise primitives the terrain
// generators are built from.
package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/cespare/xxhash/v2"
	"github.com/ojrac/opensimplex-go"
)

// Field2D samples a continuous two dimensional noise field in roughly [-1, 1].
type Field2D interface {
	Eval2(x, y float64) float64
}

// Field4D samples a continuous four dimensional noise field in roughly [-1, 1].
type Field4D interface {
	Eval4(x, y, z, w float64) float64
}

// SeedFromString hashes a textual seed into the integer seed the noise
// libraries expect. Equal strings always produce equal seeds.
func SeedFromString(seed string) int64 {
	return int64(xxhash.Sum64String(seed))
}

// New2D returns a 2D simplex field reproducible from seed.
func New2D(seed string) Field2D {
	return opensimplex.New(SeedFromString(seed))
}

// New4D returns a 4D simplex field reproducible from seed.
func New4D(seed string) Field4D {
	return opensimplex.New(SeedFromString(seed))
}

// Region is a very low frequency field used to gate large scale structures.
type Region struct {
	perlin    *perlin.Perlin
	frequency float64
}

// NewRegion builds a region field. Frequency is in cycles per block and
// should keep samples off the integer lattice where Perlin noise is zero.
func NewRegion(seed string, frequency float64) *Region {
	return &Region{
		perlin:    perlin.NewPerlin(2, 2, 3, SeedFromString(seed)),
		frequency: frequency,
	}
}

// At returns the region value at the block coordinate (x, z).
func (r *Region) At(x, z float64) float64 {
	return r.perlin.Noise2D(x*r.frequency+0.5, z*r.frequency+0.5)
}

// Tiled samples a 4D field on a torus so that the resulting planar field is
// periodic with period WorldSize along both axes. The planar coordinate is
// turned into two angles and the 4D field is sampled at their cos/sin
// projections, scaled so one period spans [X1,X2] by [Z1,Z2] in noise space.
type Tiled struct {
	Field     Field4D
	WorldSize float64
	X1, X2    float64
	Z1, Z2    float64

	cache *Cache
}

// NewTiled builds a periodic sampler over field. cacheEntries bounds the
// memo cache; zero disables memoization.
func NewTiled(field Field4D, worldSize, x1, x2, z1, z2 float64, cacheEntries int) *Tiled {
	t := &Tiled{
		Field:     field,
		WorldSize: worldSize,
		X1:        x1,
		X2:        x2,
		Z1:        z1,
		Z2:        z2,
	}
	if cacheEntries > 0 {
		t.cache = NewCache(cacheEntries)
	}
	return t
}

// At returns the periodic field value at (x, z). Values are memoized per
// integer cell, so fractional inputs within one cell share the first result.
func (t *Tiled) At(x, z float64) float64 {
	if t.cache == nil {
		return t.sample(x, z)
	}
	key := Key(x, z)
	if v, ok := t.cache.Get(key); ok {
		return v
	}
	v := t.sample(x, z)
	t.cache.Add(key, v)
	return v
}

func (t *Tiled) sample(x, z float64) float64 {
	s := x / t.WorldSize
	u := z / t.WorldSize
	dx := t.X2 - t.X1
	dz := t.Z2 - t.Z1

	nx := t.X1 + math.Cos(s*2*math.Pi)*dx/(2*math.Pi)
	nz := t.Z1 + math.Cos(u*2*math.Pi)*dz/(2*math.Pi)
	nw := t.X1 + math.Sin(s*2*math.Pi)*dx/(2*math.Pi)
	nv := t.Z1 + math.Sin(u*2*math.Pi)*dz/(2*math.Pi)

	return t.Field.Eval4(nx, nz, nw, nv)
}
