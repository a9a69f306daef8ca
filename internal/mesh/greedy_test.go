package mesh

import (
	"math/rand"
	"testing"
)

func denseKeys(dims [3]int, fill func(x, y, z int) uint32) KeyFunc {
	keys := make([]uint32, dims[0]*dims[1]*dims[2])
	for x := 0; x < dims[0]; x++ {
		for y := 0; y < dims[1]; y++ {
			for z := 0; z < dims[2]; z++ {
				keys[(y*dims[2]+z)*dims[0]+x] = fill(x, y, z)
			}
		}
	}
	return func(x, y, z int) uint32 {
		if x < 0 || y < 0 || z < 0 || x >= dims[0] || y >= dims[1] || z >= dims[2] {
			return 0
		}
		return keys[(y*dims[2]+z)*dims[0]+x]
	}
}

func naiveFaceCount(dims [3]int, key KeyFunc) int {
	offsets := [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	count := 0
	for x := 0; x < dims[0]; x++ {
		for y := 0; y < dims[1]; y++ {
			for z := 0; z < dims[2]; z++ {
				if key(x, y, z) == 0 {
					continue
				}
				for _, o := range offsets {
					if key(x+o[0], y+o[1], z+o[2]) == 0 {
						count++
					}
				}
			}
		}
	}
	return count
}

func TestGreedySolidCubeYieldsSixFullQuads(t *testing.T) {
	const n = 5
	dims := [3]int{n, n, n}
	quads := Greedy(dims, denseKeys(dims, func(x, y, z int) uint32 { return 1 }), Options{})
	if len(quads) != 6 {
		t.Fatalf("expected 6 quads, got %d", len(quads))
	}
	facings := make(map[[2]int]bool)
	for _, q := range quads {
		if q.Width != n || q.Height != n {
			t.Fatalf("expected full %dx%d quad, got %dx%d", n, n, q.Width, q.Height)
		}
		sign := 0
		if q.Positive {
			sign = 1
			if q.Plane != n {
				t.Fatalf("positive face on plane %d", q.Plane)
			}
		} else if q.Plane != 0 {
			t.Fatalf("negative face on plane %d", q.Plane)
		}
		facings[[2]int{q.Axis, sign}] = true
	}
	if len(facings) != 6 {
		t.Fatalf("expected one quad per facing, got %v", facings)
	}
}

func TestGreedyCoverageMatchesNaiveFaces(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		dims := [3]int{3 + rng.Intn(6), 3 + rng.Intn(6), 3 + rng.Intn(6)}
		key := denseKeys(dims, func(x, y, z int) uint32 {
			if rng.Intn(2) == 0 {
				return 0
			}
			return uint32(1 + rng.Intn(3))
		})

		quads := Greedy(dims, key, Options{})
		area := 0
		for _, q := range quads {
			area += q.Area()
		}
		naive := naiveFaceCount(dims, key)
		if area != naive {
			t.Fatalf("seed %d: merged area %d, naive faces %d", seed, area, naive)
		}
		if len(quads) > naive {
			t.Fatalf("seed %d: %d quads exceed %d naive faces", seed, len(quads), naive)
		}
	}
}

func TestGreedyNeverMergesDistinctKeys(t *testing.T) {
	dims := [3]int{2, 1, 1}
	key := denseKeys(dims, func(x, y, z int) uint32 { return uint32(x + 1) })
	quads := Greedy(dims, key, Options{})
	// Each voxel keeps its own five outer faces; the shared face is hidden.
	if len(quads) != 10 {
		t.Fatalf("expected 10 quads, got %d", len(quads))
	}
	for _, q := range quads {
		src := q.Source()
		if key(src[0], src[1], src[2]) != q.Key {
			t.Fatalf("quad %+v does not originate from a voxel with its key", q)
		}
	}
}

func TestGreedySkipAxes(t *testing.T) {
	dims := [3]int{3, 3, 3}
	key := denseKeys(dims, func(x, y, z int) uint32 { return 1 })
	quads := Greedy(dims, key, Options{SkipAxes: [3]bool{false, true, false}})
	if len(quads) != 4 {
		t.Fatalf("expected 4 quads with the y axis skipped, got %d", len(quads))
	}
	for _, q := range quads {
		if q.Axis == 1 {
			t.Fatalf("unexpected quad on skipped axis: %+v", q)
		}
	}
}

func TestGreedyVisibilityHookEmitsBothSides(t *testing.T) {
	dims := [3]int{2, 1, 1}
	key := denseKeys(dims, func(x, y, z int) uint32 { return uint32(x + 1) })
	// Key 2 is see-through: key 1 shows a face against it, but not vice versa.
	visible := func(self, neighbor uint32) bool {
		return neighbor == 0 || (self == 1 && neighbor == 2)
	}
	quads := Greedy(dims, key, Options{Visible: visible})
	if len(quads) != 11 {
		t.Fatalf("expected 11 quads, got %d", len(quads))
	}
}

func TestQuadCornersWindAroundTheNormal(t *testing.T) {
	dims := [3]int{1, 1, 1}
	quads := Greedy(dims, denseKeys(dims, func(x, y, z int) uint32 { return 7 }), Options{})
	for _, q := range quads {
		a, b, d := q.Corners[0], q.Corners[1], q.Corners[3]
		e1 := [3]int{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		e2 := [3]int{d[0] - a[0], d[1] - a[1], d[2] - a[2]}
		cross := [3]int{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		want := 1
		if !q.Positive {
			want = -1
		}
		if cross[q.Axis] != want {
			t.Fatalf("quad %+v winds the wrong way: %v", q, cross)
		}
	}
}
