package terrain

import (
	"testing"

	"voxelgen/internal/world"
)

func TestComputeColorUsesDiscreteBands(t *testing.T) {
	seen := make(map[world.RGB]struct{})
	for i := 0; i <= 1000; i++ {
		seen[ComputeColor(float64(i)/1000, groundGradient, 0)] = struct{}{}
	}
	if len(seen) > colorBands {
		t.Fatalf("expected at most %d bands, got %d", colorBands, len(seen))
	}
	if len(seen) < colorBands/2 {
		t.Fatalf("expected the gradient to be spread over the bands, got %d", len(seen))
	}

	low := make(map[world.RGB]struct{})
	for i := 0; i <= 1000; i++ {
		low[ComputeLowLODColor(float64(i)/1000, groundGradient)] = struct{}{}
	}
	if len(low) > lowLODBands {
		t.Fatalf("expected at most %d low detail bands, got %d", lowLODBands, len(low))
	}
}

func TestGradientEndpoints(t *testing.T) {
	if got := groundGradient.At(0); got != groundGradient[0] {
		t.Fatalf("unexpected bottom color %v", got)
	}
	if got := groundGradient.At(1); got != groundGradient[len(groundGradient)-1] {
		t.Fatalf("unexpected top color %v", got)
	}
	if got := groundGradient.At(-3); got != groundGradient[0] {
		t.Fatalf("expected clamping below zero, got %v", got)
	}
}

func TestJitterIsBoundedAndDeterministic(t *testing.T) {
	for x := -20; x < 20; x++ {
		a := jitter(x, x*3, -x, jitterAboveWater)
		if a != jitter(x, x*3, -x, jitterAboveWater) {
			t.Fatalf("jitter is not deterministic at %d", x)
		}
		if a < -jitterAboveWater || a > jitterAboveWater {
			t.Fatalf("jitter %v out of bounds", a)
		}
	}
}

func TestPresenceTracksVolumeOnly(t *testing.T) {
	p := NewPresence(world.BlockCoord{X: 16, Y: 0, Z: -16}, world.Size{X: 4, Y: 4, Z: 4})
	p.Record(17, 2, -15, true)
	p.Record(18, 2, -15, false)
	p.Record(100, 0, 0, true)

	if solid, known := p.Solid(17, 2, -15); !solid || !known {
		t.Fatalf("expected recorded solid cell")
	}
	if solid, known := p.Solid(18, 2, -15); solid || !known {
		t.Fatalf("expected recorded air cell")
	}
	if _, known := p.Solid(19, 2, -15); known {
		t.Fatalf("unrecorded cell reported as known")
	}
	if _, known := p.Solid(100, 0, 0); known {
		t.Fatalf("cell outside the volume reported as known")
	}
	if p.Count() != 1 {
		t.Fatalf("expected one solid cell, got %d", p.Count())
	}
}
