package blocks

import "fmt"

// Facing names one of the six axis-aligned face directions.
type Facing uint8

const (
	Top Facing = iota
	Bottom
	North
	South
	East
	West
)

// Facings lists every facing in declaration order.
var Facings = [6]Facing{Top, Bottom, North, South, East, West}

var facingNames = [6]string{"top", "bottom", "north", "south", "east", "west"}

func (f Facing) String() string {
	if int(f) < len(facingNames) {
		return facingNames[f]
	}
	return fmt.Sprintf("facing(%d)", uint8(f))
}

// FacingFor maps an axis (0=x, 1=y, 2=z) and direction to a facing.
// +x is east, +y is top and +z is south.
func FacingFor(axis int, positive bool) Facing {
	switch axis {
	case 0:
		if positive {
			return East
		}
		return West
	case 1:
		if positive {
			return Top
		}
		return Bottom
	default:
		if positive {
			return South
		}
		return North
	}
}

// Axis returns the axis the facing is normal to.
func (f Facing) Axis() int {
	switch f {
	case East, West:
		return 0
	case Top, Bottom:
		return 1
	default:
		return 2
	}
}

// Positive reports whether the facing points along the positive axis.
func (f Facing) Positive() bool {
	return f == East || f == Top || f == South
}

// Offset returns the unit step toward the neighbor on this facing.
func (f Facing) Offset() [3]int {
	var o [3]int
	if f.Positive() {
		o[f.Axis()] = 1
	} else {
		o[f.Axis()] = -1
	}
	return o
}

func (f Facing) Opposite() Facing {
	return FacingFor(f.Axis(), !f.Positive())
}

// Horizontal reports whether the facing is a side face.
func (f Facing) Horizontal() bool {
	return f.Axis() != 1
}

// FaceContext describes a voxel and its surroundings for face emission.
type FaceContext struct {
	Self     ID
	Position [3]int
	// Neighbors holds the type adjacent on each facing.
	Neighbors [6]ID
	// AboveNeighbors holds, for each side facing, the type one cell above
	// that neighbor. Entries for Top and Bottom are unused.
	AboveNeighbors [6]ID
}

// FaceDescriptor is one face a block type asks the mesher to emit.
type FaceDescriptor struct {
	Facing      Facing
	TextureID   string
	AtlasOffset [2]int
	AtlasSize   [2]int
	// Offset moves the face plane inward from the voxel boundary.
	Offset float32
	// MinY and MaxY bound side faces vertically within the cell.
	MinY, MaxY float32
	// Fill faces close the seam between neighboring columns and face back
	// into the emitting cell.
	Fill bool
}

// WaterSurface is the height of a water surface inside its cell.
const WaterSurface float32 = 0.9

type base struct {
	id       ID
	name     string
	flags    Flags
	textures map[Facing]string
	registry *Registry
}

func (b base) ID() ID                      { return b.id }
func (b base) Name() string                { return b.name }
func (b base) Flags() Flags                { return b.flags }
func (b base) Textures() map[Facing]string { return b.textures }

func (b base) face(facing Facing) FaceDescriptor {
	fd := FaceDescriptor{Facing: facing, MaxY: 1}
	if b.registry == nil {
		return fd
	}
	if rect, ref, ok := b.registry.Texture(b.id, facing); ok {
		fd.TextureID = ref
		fd.AtlasOffset = [2]int{rect.X, rect.Y}
		fd.AtlasSize = [2]int{rect.W, rect.H}
	}
	return fd
}

// occludes reports whether neighbor hides every face against it.
func (b base) occludes(neighbor ID) bool {
	if neighbor == Air || b.registry == nil {
		return false
	}
	f := b.registry.Flags(neighbor)
	return f.Culling && !f.Transparent
}

func (b base) cube(ctx FaceContext, visible func(self, neighbor ID) bool) []FaceDescriptor {
	faces := make([]FaceDescriptor, 0, 6)
	for _, facing := range Facings {
		if visible(ctx.Self, ctx.Neighbors[facing]) {
			faces = append(faces, b.face(facing))
		}
	}
	return faces
}

func allFaces(ref string) map[Facing]string {
	m := make(map[Facing]string, 6)
	for _, f := range Facings {
		m[f] = ref
	}
	return m
}

type airType struct{}

func (airType) ID() ID                             { return Air }
func (airType) Name() string                       { return "air" }
func (airType) Flags() Flags                       { return Flags{Transparent: true} }
func (airType) IsVisible(self, neighbor ID) bool   { return false }
func (airType) Faces(FaceContext) []FaceDescriptor { return nil }
func (airType) Textures() map[Facing]string        { return nil }

// dirt is the generic opaque solid.
type dirt struct{ base }

func newDirt(r *Registry) *dirt {
	textures := allFaces("dirt")
	textures[Top] = "dirt_top"
	return &dirt{base{
		id:       Dirt,
		name:     "dirt",
		flags:    Flags{Culling: true, AO: true, Mergeable: true},
		textures: textures,
		registry: r,
	}}
}

func (d *dirt) IsVisible(self, neighbor ID) bool {
	if neighbor == Air {
		return true
	}
	if d.occludes(neighbor) {
		return false
	}
	return d.registry.Flags(neighbor).Transparent
}

func (d *dirt) Faces(ctx FaceContext) []FaceDescriptor {
	return d.cube(ctx, d.IsVisible)
}

type glass struct{ base }

func newGlass(r *Registry) *glass {
	return &glass{base{
		id:       Glass,
		name:     "glass",
		flags:    Flags{Transparent: true, Culling: true, Mergeable: true},
		textures: allFaces("glass"),
		registry: r,
	}}
}

func (g *glass) IsVisible(self, neighbor ID) bool {
	if neighbor == self {
		return false
	}
	return !g.occludes(neighbor)
}

func (g *glass) Faces(ctx FaceContext) []FaceDescriptor {
	return g.cube(ctx, g.IsVisible)
}

// water has a lowered surface and closes seams between columns whose
// surfaces do not line up.
type water struct{ base }

func newWater(r *Registry) *water {
	textures := allFaces("water")
	textures[Top] = "water_top"
	return &water{base{
		id:       Water,
		name:     "water",
		flags:    Flags{Transparent: true},
		textures: textures,
		registry: r,
	}}
}

func (w *water) IsVisible(self, neighbor ID) bool {
	if neighbor == self {
		return false
	}
	return !w.occludes(neighbor)
}

func (w *water) Faces(ctx FaceContext) []FaceDescriptor {
	surface := ctx.Neighbors[Top] != Water
	faces := make([]FaceDescriptor, 0, 6)
	for _, facing := range Facings {
		neighbor := ctx.Neighbors[facing]
		if w.IsVisible(ctx.Self, neighbor) {
			fd := w.face(facing)
			switch {
			case facing == Top:
				fd.Offset = 1 - WaterSurface
			case facing.Horizontal() && surface:
				fd.MaxY = WaterSurface
			}
			faces = append(faces, fd)
			continue
		}
		// A surface cell next to a column that keeps rising leaves a gap
		// between its lowered top and the neighbor's full-height water.
		if surface && facing.Horizontal() && neighbor == Water && ctx.AboveNeighbors[facing] == Water {
			fd := w.face(facing)
			fd.MinY = WaterSurface
			fd.MaxY = 1
			fd.Fill = true
			faces = append(faces, fd)
		}
	}
	return faces
}

// feature is a small decorative placement such as grass. It never culls.
type feature struct{ base }

func newFeature(r *Registry) *feature {
	return &feature{base{
		id:       Feature,
		name:     "feature",
		flags:    Flags{Transparent: true},
		textures: allFaces("feature"),
		registry: r,
	}}
}

func (f *feature) IsVisible(self, neighbor ID) bool {
	return !f.occludes(neighbor)
}

func (f *feature) Faces(ctx FaceContext) []FaceDescriptor {
	return f.cube(ctx, f.IsVisible)
}
