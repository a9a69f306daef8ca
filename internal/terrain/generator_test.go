package terrain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"voxelgen/internal/blocks"
	"voxelgen/internal/config"
	"voxelgen/internal/world"
)

func testTerrainConfig() config.TerrainConfig {
	cfg := config.Default().Terrain
	cfg.WaterLevel = 4
	return cfg
}

func mustGenerator(t *testing.T, kind, seed string, cfg config.TerrainConfig) *Generator {
	t.Helper()
	gen, err := New(kind, seed, cfg)
	if err != nil {
		t.Fatalf("new %s generator: %v", kind, err)
	}
	return gen
}

func TestNewRejectsUnknownGenerator(t *testing.T) {
	_, err := New("caves", "base", testTerrainConfig())
	if !errors.Is(err, ErrUnknownGenerator) {
		t.Fatalf("expected ErrUnknownGenerator, got %v", err)
	}
	if !strings.Contains(err.Error(), `"caves"`) {
		t.Fatalf("expected error to name the generator, got %v", err)
	}
	for _, kind := range Kinds() {
		if !Known(kind) {
			t.Fatalf("kind %s listed but unknown", kind)
		}
	}
}

func TestFlatGeneratorScenario(t *testing.T) {
	cfg := testTerrainConfig()
	gen := mustGenerator(t, Flat, "base", cfg)

	for x := -10; x <= 10; x += 5 {
		for z := -10; z <= 10; z += 5 {
			for y := 0; y < int(cfg.MaxHeight); y++ {
				v := gen.Terrain(x, y, z)
				if y <= 5 {
					if v.Type != blocks.Dirt {
						t.Fatalf("expected dirt at (%d,%d,%d), got %d", x, y, z, v.Type)
					}
					continue
				}
				if !v.IsAir() {
					t.Fatalf("expected air at (%d,%d,%d), got %d", x, y, z, v.Type)
				}
				if _, ok := gen.Feature(x, y, z, blocks.Air); ok {
					t.Fatalf("unexpected feature at (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

func TestTerrainIsDeterministic(t *testing.T) {
	cfg := testTerrainConfig()
	for _, kind := range []string{Islands, Hilly} {
		t.Run(kind, func(t *testing.T) {
			warm := mustGenerator(t, kind, "determinism", cfg)
			coldCfg := cfg
			coldCfg.CacheEntries = 1
			cold := mustGenerator(t, kind, "determinism", coldCfg)

			type sample struct {
				x, y, z int
				v       world.Voxel
			}
			var samples []sample
			for x := -40; x < 40; x += 3 {
				for z := -40; z < 40; z += 7 {
					for y := 0; y < 40; y += 2 {
						samples = append(samples, sample{x, y, z, warm.Terrain(x, y, z)})
					}
				}
			}
			// Re-query the warm instance and walk the cold one in reverse.
			for _, s := range samples {
				if got := warm.Terrain(s.x, s.y, s.z); got != s.v {
					t.Fatalf("warm mismatch at (%d,%d,%d): %+v vs %+v", s.x, s.y, s.z, got, s.v)
				}
			}
			for i := len(samples) - 1; i >= 0; i-- {
				s := samples[i]
				if got := cold.Terrain(s.x, s.y, s.z); got != s.v {
					t.Fatalf("cold mismatch at (%d,%d,%d): %+v vs %+v", s.x, s.y, s.z, got, s.v)
				}
			}
		})
	}
}

func TestAirVoxelsCarryNoColor(t *testing.T) {
	gen := mustGenerator(t, Islands, "air", testTerrainConfig())
	for x := 0; x < 30; x += 3 {
		for y := 0; y < 64; y++ {
			v := gen.Terrain(x, y, x)
			if v.IsAir() && v != (world.Voxel{}) {
				t.Fatalf("air voxel carries data: %+v", v)
			}
			if !v.IsAir() && v.Palette == world.PaletteNone {
				t.Fatalf("solid voxel without palette class: %+v", v)
			}
		}
	}
}

func TestHeightSurfacesStayInBounds(t *testing.T) {
	cfg := testTerrainConfig()
	h := NewHeights("bounds", cfg, true)
	for x := -500; x < 500; x += 13 {
		for z := -500; z < 500; z += 17 {
			if land := h.Land(x, z); land > cfg.MaxHeight {
				t.Fatalf("land height %v exceeds max at (%d,%d)", land, x, z)
			}
			if terrain := h.Terrain(x, z); terrain < 0 || terrain > cfg.MaxHeight {
				t.Fatalf("terrain height %v out of range at (%d,%d)", terrain, x, z)
			}
			if peak := h.Peak(x, z); peak > 0.75*cfg.MaxHeight {
				t.Fatalf("peak height %v above cap at (%d,%d)", peak, x, z)
			}
			bridge := h.Bridge(x, z)
			if bridge < cfg.WaterLevel+1 || bridge > 0.2*cfg.MaxHeight+1 {
				t.Fatalf("bridge height %v out of range at (%d,%d)", bridge, x, z)
			}
			if plateau := h.Plateau(x, z); h.IsPlateau(x, z) != (plateau < h.Terrain(x, z)) {
				t.Fatalf("plateau classification mismatch at (%d,%d)", x, z)
			}
		}
	}
}

func TestHeightsArePeriodic(t *testing.T) {
	cfg := testTerrainConfig()
	cfg.CacheEntries = 1
	h := NewHeights("wrap", cfg, true)
	size := int(cfg.WorldSize)
	for _, pt := range [][2]int{{0, 0}, {17, 901}, {-300, 12}} {
		a := h.Land(pt[0], pt[1])
		b := h.Land(pt[0]+size, pt[1]-size)
		if diff := a - b; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("land not periodic at %v: %v vs %v", pt, a, b)
		}
	}
}

func TestFeatureSparsityFollowsThreshold(t *testing.T) {
	fraction := func(threshold float64) float64 {
		cfg := testTerrainConfig()
		cfg.FeatureThreshold = threshold
		gen := mustGenerator(t, Hilly, "sparsity", cfg)
		hits, total := 0, 0
		for x := 0; x < 400; x++ {
			for z := 0; z < 400; z++ {
				total++
				if gen.featureNoise(x, z) {
					hits++
				}
			}
		}
		return float64(hits) / float64(total)
	}

	if got := fraction(0); got != 0 {
		t.Fatalf("expected no features at threshold 0, got %v", got)
	}
	low := fraction(0.05)
	if low < 0.065 || low > 0.1 {
		t.Fatalf("feature fraction %v at threshold 0.05 outside [0.065, 0.1]", low)
	}
	// Doubling a small threshold roughly doubles the share of columns.
	if ratio := fraction(0.1) / low; ratio < 1.6 || ratio > 2.4 {
		t.Fatalf("doubling the threshold scaled the fraction by %v", ratio)
	}
	prev := low
	for _, threshold := range []float64{0.1, 0.2, 0.4} {
		got := fraction(threshold)
		if got <= prev {
			t.Fatalf("fraction %v at threshold %v does not exceed %v", got, threshold, prev)
		}
		prev = got
	}
	if all := fraction(1); all < 0.99 {
		t.Fatalf("expected nearly every column at threshold 1, got %v", all)
	}
}

func TestFeaturePreconditions(t *testing.T) {
	cfg := testTerrainConfig()
	cfg.FeatureThreshold = 1
	gen := mustGenerator(t, Hilly, "preconditions", cfg)

	for x := 0; x < 40; x++ {
		land := int(gen.Heights().Land(x, 0))
		y := land + 1
		if y <= int(cfg.WaterLevel) {
			if _, ok := gen.Feature(x, y, 0, blocks.Air); ok {
				t.Fatalf("feature placed at or below water level at x=%d", x)
			}
			continue
		}
		if _, ok := gen.Feature(x, y, 0, blocks.Dirt); ok {
			t.Fatalf("feature placed in an occupied cell at x=%d", x)
		}
		_, ok := gen.Feature(x, y, 0, blocks.Air)
		if want := gen.solid(x, y-1, 0); ok != want {
			t.Fatalf("feature at x=%d: got %v, want %v", x, ok, want)
		}
	}
}

func TestBuilderMatchesGeneratorFunctions(t *testing.T) {
	cfg := testTerrainConfig()
	size := world.Size{X: 8, Y: 64, Z: 8}
	builder := world.NewBuilder(size, log.New(io.Discard, "", 0))

	for _, kind := range []string{Islands, Hilly} {
		t.Run(kind, func(t *testing.T) {
			gen := mustGenerator(t, kind, "builder", cfg)
			coord := world.ChunkCoord{X: 3, Z: -2}
			chunk, err := builder.Build(context.Background(), gen, coord)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			reference := mustGenerator(t, kind, "builder", cfg)
			origin := chunk.Origin()
			for x := 0; x < size.X; x++ {
				for z := 0; z < size.Z; z++ {
					for y := 0; y < size.Y; y++ {
						gx, gz := origin.X+x, origin.Z+z
						want := reference.Terrain(gx, y, gz)
						if id, ok := reference.Feature(gx, y, gz, want.Type); ok {
							want = featureVoxel()
							if id != blocks.Feature {
								t.Fatalf("unexpected feature id %d", id)
							}
						}
						if got := chunk.At(x, y, z); got != want {
							t.Fatalf("voxel (%d,%d,%d): got %+v want %+v", x, y, z, got, want)
						}
					}
				}
			}
		})
	}
}

func TestBuildFlatChunkAndLogProgress(t *testing.T) {
	var buf bytes.Buffer
	builder := world.NewBuilder(world.Size{X: 4, Y: 16, Z: 4}, log.New(&buf, "", 0))
	gen := mustGenerator(t, Flat, "base", testTerrainConfig())

	chunk, err := builder.Build(context.Background(), gen, world.ChunkCoord{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got, want := chunk.Count(), 4*4*6; got != want {
		t.Fatalf("expected %d solid voxels, got %d", want, got)
	}
	for _, marker := range []string{"0%", "50%", "100%"} {
		if !strings.Contains(buf.String(), marker) {
			t.Fatalf("expected progress %s in logs: %s", marker, buf.String())
		}
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	builder := world.NewBuilder(world.Size{X: 4, Y: 16, Z: 4}, log.New(io.Discard, "", 0))
	gen := mustGenerator(t, Hilly, "cancel", testTerrainConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := builder.Build(ctx, gen, world.ChunkCoord{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigAcceptsExactlyTheKnownKinds(t *testing.T) {
	for _, kind := range Kinds() {
		cfg := config.Default()
		cfg.Terrain.Generators = []string{kind}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("config rejects generator %s: %v", kind, err)
		}
	}
	for _, kind := range config.Default().Terrain.Generators {
		if !Known(kind) {
			t.Fatalf("default config lists unknown generator %s", kind)
		}
	}
	cfg := config.Default()
	cfg.Terrain.Generators = []string{"caves"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("config accepted an unknown generator")
	}
}
