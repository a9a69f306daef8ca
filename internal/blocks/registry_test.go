package blocks

import (
	"errors"
	"testing"
)

func testAtlas() Atlas {
	return Atlas{
		Width:    64,
		Height:   64,
		TileSize: 16,
		Textures: map[string]int{
			"dirt":      0,
			"dirt_top":  1,
			"glass":     2,
			"water":     3,
			"water_top": 4,
			"feature":   5,
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Default(testAtlas())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	return r
}

func TestAtlasResolve(t *testing.T) {
	atlas := testAtlas()
	rect, ok := atlas.Resolve("feature")
	if !ok {
		t.Fatalf("expected feature texture to resolve")
	}
	if rect != (Rect{X: 16, Y: 16, W: 16, H: 16}) {
		t.Fatalf("unexpected rect %+v", rect)
	}
	if _, ok := atlas.Resolve("lava"); ok {
		t.Fatalf("expected unknown texture to fail")
	}
	atlas.Textures["far"] = 16
	if _, ok := atlas.Resolve("far"); ok {
		t.Fatalf("expected tile outside the atlas to fail")
	}
}

func TestRegisterFailsOnUnresolvedTexture(t *testing.T) {
	atlas := testAtlas()
	delete(atlas.Textures, "water_top")
	_, err := Default(atlas)
	if !errors.Is(err, ErrUnresolvedTexture) {
		t.Fatalf("expected unresolved texture error, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Register(newGlass(r)); !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestVisibilityRules(t *testing.T) {
	r := newTestRegistry(t)
	tests := []struct {
		name           string
		self, neighbor ID
		want           bool
	}{
		{"air never visible", Air, Air, false},
		{"dirt against air", Dirt, Air, true},
		{"dirt against dirt", Dirt, Dirt, false},
		{"dirt against glass", Dirt, Glass, true},
		{"dirt against water", Dirt, Water, true},
		{"glass against glass", Glass, Glass, false},
		{"glass against dirt", Glass, Dirt, false},
		{"glass against water", Glass, Water, true},
		{"water against water", Water, Water, false},
		{"water against air", Water, Air, true},
		{"water against dirt", Water, Dirt, false},
		{"feature against feature", Feature, Feature, true},
		{"feature against dirt", Feature, Dirt, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsVisible(tt.self, tt.neighbor); got != tt.want {
				t.Fatalf("IsVisible(%d, %d) = %v, want %v", tt.self, tt.neighbor, got, tt.want)
			}
		})
	}
}

func TestFlags(t *testing.T) {
	r := newTestRegistry(t)
	if f := r.Flags(Dirt); !f.Culling || f.Transparent || !f.AO || !f.Mergeable {
		t.Fatalf("unexpected dirt flags %+v", f)
	}
	if f := r.Flags(Water); !f.Transparent || f.Mergeable {
		t.Fatalf("unexpected water flags %+v", f)
	}
	if f := r.Flags(ID(200)); !f.Transparent {
		t.Fatalf("unknown ids should behave like air: %+v", f)
	}
}

func TestDirtFacesCarryAtlasTiles(t *testing.T) {
	r := newTestRegistry(t)
	dirtType, _ := r.Type(Dirt)
	ctx := FaceContext{Self: Dirt}
	ctx.Neighbors[Bottom] = Dirt
	faces := dirtType.Faces(ctx)
	if len(faces) != 5 {
		t.Fatalf("expected 5 faces, got %d", len(faces))
	}
	for _, fd := range faces {
		if fd.Facing == Bottom {
			t.Fatalf("bottom face against dirt should be culled")
		}
		if fd.Facing == Top {
			if fd.TextureID != "dirt_top" || fd.AtlasOffset != [2]int{16, 0} {
				t.Fatalf("unexpected top face %+v", fd)
			}
		}
	}
}

func TestWaterSurfaceAndFillFaces(t *testing.T) {
	r := newTestRegistry(t)
	waterType, _ := r.Type(Water)

	// Surface cell: air above, water to the east whose column keeps rising.
	ctx := FaceContext{Self: Water}
	ctx.Neighbors[Bottom] = Dirt
	ctx.Neighbors[East] = Water
	ctx.AboveNeighbors[East] = Water
	ctx.Neighbors[West] = Water
	ctx.Neighbors[North] = Dirt
	ctx.Neighbors[South] = Dirt

	faces := waterType.Faces(ctx)
	var top, fill int
	for _, fd := range faces {
		switch {
		case fd.Fill:
			fill++
			if fd.Facing != East || fd.MinY != WaterSurface || fd.MaxY != 1 {
				t.Fatalf("unexpected fill face %+v", fd)
			}
		case fd.Facing == Top:
			top++
			if fd.Offset <= 0 {
				t.Fatalf("expected lowered surface, got %+v", fd)
			}
		default:
			t.Fatalf("unexpected face %+v", fd)
		}
	}
	if top != 1 || fill != 1 {
		t.Fatalf("expected one top and one fill face, got %d and %d", top, fill)
	}

	// Submerged cell: top face is suppressed and no fill is needed.
	ctx.Neighbors[Top] = Water
	for _, fd := range waterType.Faces(ctx) {
		if fd.Facing == Top || fd.Fill {
			t.Fatalf("unexpected face under water %+v", fd)
		}
	}
}

func TestFacingGeometry(t *testing.T) {
	for _, f := range Facings {
		if f.Opposite().Opposite() != f {
			t.Fatalf("opposite is not an involution for %s", f)
		}
		if FacingFor(f.Axis(), f.Positive()) != f {
			t.Fatalf("FacingFor does not round trip %s", f)
		}
		o := f.Offset()
		if o[f.Axis()] == 0 {
			t.Fatalf("offset of %s is zero on its axis", f)
		}
	}
	if Top.Horizontal() || !North.Horizontal() {
		t.Fatalf("unexpected horizontal classification")
	}
}
