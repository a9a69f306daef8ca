package noise

import (
	"math"
	"math/rand"
	"testing"
)

func TestSeedFromStringIsStable(t *testing.T) {
	if SeedFromString("base") != SeedFromString("base") {
		t.Fatalf("expected identical seeds for identical strings")
	}
	if SeedFromString("base") == SeedFromString("base/feature") {
		t.Fatalf("expected derived seeds to differ")
	}
}

func TestFieldsAreReproducibleFromSeed(t *testing.T) {
	a2, b2 := New2D("alpha"), New2D("alpha")
	a4, b4 := New4D("alpha"), New4D("alpha")
	other := New2D("beta")

	rng := rand.New(rand.NewSource(7))
	differs := false
	for i := 0; i < 200; i++ {
		x := rng.Float64()*1000 - 500
		z := rng.Float64()*1000 - 500
		if a2.Eval2(x, z) != b2.Eval2(x, z) {
			t.Fatalf("2D field mismatch at (%f,%f)", x, z)
		}
		if a4.Eval4(x, z, z, x) != b4.Eval4(x, z, z, x) {
			t.Fatalf("4D field mismatch at (%f,%f)", x, z)
		}
		if a2.Eval2(x, z) != other.Eval2(x, z) {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("expected different seeds to produce different fields")
	}
}

func TestTiledIsPeriodic(t *testing.T) {
	const worldSize = 512.0
	tiled := NewTiled(New4D("periodic"), worldSize, 0, 4, 0, 4, 0)

	for _, pt := range [][2]float64{{0, 0}, {13, 250}, {-77, 31}, {511, 3}, {200, -400}} {
		x, z := pt[0], pt[1]
		base := tiled.At(x, z)
		if got := tiled.At(x+worldSize, z); math.Abs(got-base) > 1e-9 {
			t.Fatalf("x period broken at (%v,%v): %v vs %v", x, z, base, got)
		}
		if got := tiled.At(x, z+worldSize); math.Abs(got-base) > 1e-9 {
			t.Fatalf("z period broken at (%v,%v): %v vs %v", x, z, base, got)
		}
		if got := tiled.At(x-2*worldSize, z+3*worldSize); math.Abs(got-base) > 1e-9 {
			t.Fatalf("multi period broken at (%v,%v): %v vs %v", x, z, base, got)
		}
	}
}

func TestTiledCacheMatchesUncachedSamples(t *testing.T) {
	field := New4D("cache")
	cached := NewTiled(field, 1024, 0, 8, 0, 8, 64)
	plain := NewTiled(field, 1024, 0, 8, 0, 8, 0)

	for pass := 0; pass < 2; pass++ {
		for x := -20; x < 20; x += 3 {
			for z := -20; z < 20; z += 5 {
				if cached.At(float64(x), float64(z)) != plain.At(float64(x), float64(z)) {
					t.Fatalf("pass %d: cached sample differs at (%d,%d)", pass, x, z)
				}
			}
		}
	}
	if cached.cache.Len() > 64 {
		t.Fatalf("cache exceeded its bound: %d", cached.cache.Len())
	}
}

func TestKeyQuantizesToIntegerCells(t *testing.T) {
	if Key(3.2, 4.9) != Key(3, 4) {
		t.Fatalf("expected fractional coordinates to share a cell key")
	}
	if Key(-0.5, 0) != Key(-1, 0) {
		t.Fatalf("expected floor quantization for negative coordinates")
	}
	if Key(1, 0) == Key(0, 1) {
		t.Fatalf("expected distinct keys for distinct cells")
	}
	// Documented aliasing once |z| reaches the stride.
	if Key(1, 0) != Key(0, KeyStride) {
		t.Fatalf("expected keys to alias at the stride boundary")
	}
}

func TestCacheMemo(t *testing.T) {
	cache := NewCache(4)
	calls := 0
	fn := func(x, z int) float64 {
		calls++
		return float64(x*10 + z)
	}
	for i := 0; i < 3; i++ {
		if got := cache.Memo(2, 3, fn); got != 23 {
			t.Fatalf("unexpected memo value %v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single evaluation, got %d", calls)
	}
	for x := 0; x < 10; x++ {
		cache.Memo(x, 0, fn)
	}
	if cache.Len() != 4 {
		t.Fatalf("expected bounded cache of 4 entries, got %d", cache.Len())
	}
}

func TestRegionIsDeterministic(t *testing.T) {
	a := NewRegion("region", 0.002)
	b := NewRegion("region", 0.002)
	for x := -300.0; x < 300; x += 37 {
		if a.At(x, -x) != b.At(x, -x) {
			t.Fatalf("region mismatch at %v", x)
		}
	}
}
