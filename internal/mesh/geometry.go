package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelgen/internal/blocks"
	"voxelgen/internal/world"
)

// Geometry holds flat vertex buffers: three floats per vertex for
// positions, normals and colors, one optional palette index per vertex and
// six indices per quad.
type Geometry struct {
	Positions      []float32 `json:"positions"`
	Normals        []float32 `json:"normals"`
	Colors         []float32 `json:"colors"`
	PaletteIndices []float32 `json:"paletteIndices,omitempty"`
	Indices        []uint32  `json:"indices"`
}

// Quads returns the number of quads in the geometry.
func (g *Geometry) Quads() int {
	return len(g.Indices) / 6
}

// Vertices returns the number of vertices in the geometry.
func (g *Geometry) Vertices() int {
	return len(g.Positions) / 3
}

type BuildOptions struct {
	SkipAxes [3]bool
	// PaletteIndex adds the source palette index of every vertex.
	PaletteIndex bool
	// Debug validates the encoded chunk before meshing. Without it a
	// malformed chunk yields undefined geometry.
	Debug bool
}

// volume is the dense form of an encoded chunk: palette index + 1 per cell.
type volume struct {
	size  world.Size
	keys  []uint32
	enc   *world.EncodedChunk
	types []blocks.ID
}

func newVolume(enc *world.EncodedChunk) *volume {
	vol := &volume{
		size:  enc.Size,
		keys:  make([]uint32, enc.Size.Volume()),
		enc:   enc,
		types: make([]blocks.ID, len(enc.Palette)),
	}
	for i := range vol.types {
		vol.types[i] = enc.TypeOf(i)
	}
	for i := 0; i+3 < len(enc.Data); i += 4 {
		x, y, z, idx := enc.Data[i], enc.Data[i+1], enc.Data[i+2], enc.Data[i+3]
		if idx < 0 || idx >= len(enc.Palette) {
			continue
		}
		if n, ok := vol.index(x, y, z); ok {
			vol.keys[n] = uint32(idx) + 1
		}
	}
	return vol
}

func (v *volume) index(x, y, z int) (int, bool) {
	if x < 0 || y < 0 || z < 0 || x >= v.size.X || y >= v.size.Y || z >= v.size.Z {
		return 0, false
	}
	return (y*v.size.Z+z)*v.size.X + x, true
}

func (v *volume) key(x, y, z int) uint32 {
	n, ok := v.index(x, y, z)
	if !ok {
		return 0
	}
	return v.keys[n]
}

func (v *volume) typeOfKey(k uint32) blocks.ID {
	if k == 0 {
		return blocks.Air
	}
	return v.types[k-1]
}

func (v *volume) typeAt(x, y, z int) blocks.ID {
	return v.typeOfKey(v.key(x, y, z))
}

func (v *volume) color(k uint32) mgl32.Vec3 {
	c := v.enc.Palette[k-1]
	return mgl32.Vec3{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
}

// Build meshes an encoded chunk. Mergeable block types go through the
// greedy mesher with the registry's visibility rules; the remaining types
// emit their own faces per voxel.
func Build(enc *world.EncodedChunk, reg *blocks.Registry, opts BuildOptions) (*Geometry, error) {
	if opts.Debug {
		if _, err := world.Decode(world.ChunkCoord{}, enc); err != nil {
			return nil, fmt.Errorf("mesh chunk: %w", err)
		}
	}
	vol := newVolume(enc)
	geo := &Geometry{}

	mergeable := make([]bool, len(vol.types))
	for i, id := range vol.types {
		mergeable[i] = reg.Flags(id).Mergeable
	}
	greedyKey := func(x, y, z int) uint32 {
		k := vol.key(x, y, z)
		if k == 0 || !mergeable[k-1] {
			return 0
		}
		return k
	}
	visible := func(self, neighbor uint32) bool {
		return reg.IsVisible(vol.typeOfKey(self), vol.typeOfKey(neighbor))
	}

	dims := [3]int{enc.Size.X, enc.Size.Y, enc.Size.Z}
	for _, q := range Greedy(dims, greedyKey, Options{SkipAxes: opts.SkipAxes, Visible: visible}) {
		var corners [4]mgl32.Vec3
		for i, c := range q.Corners {
			corners[i] = mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
		}
		geo.appendQuad(corners, vol.color(q.Key), float32(q.Key-1), opts.PaletteIndex)
	}

	for y := 0; y < vol.size.Y; y++ {
		for z := 0; z < vol.size.Z; z++ {
			for x := 0; x < vol.size.X; x++ {
				k := vol.key(x, y, z)
				if k == 0 || mergeable[k-1] {
					continue
				}
				t, ok := reg.Type(vol.types[k-1])
				if !ok {
					continue
				}
				ctx := faceContext(vol, x, y, z)
				for _, fd := range t.Faces(ctx) {
					if opts.SkipAxes[fd.Facing.Axis()] {
						continue
					}
					geo.appendQuad(faceCorners(x, y, z, fd), vol.color(k), float32(k-1), opts.PaletteIndex)
				}
			}
		}
	}
	return geo, nil
}

func faceContext(vol *volume, x, y, z int) blocks.FaceContext {
	ctx := blocks.FaceContext{
		Self:     vol.typeAt(x, y, z),
		Position: [3]int{x, y, z},
	}
	for _, f := range blocks.Facings {
		o := f.Offset()
		ctx.Neighbors[f] = vol.typeAt(x+o[0], y+o[1], z+o[2])
		if f.Horizontal() {
			ctx.AboveNeighbors[f] = vol.typeAt(x+o[0], y+o[1]+1, z+o[2])
		}
	}
	return ctx
}

// faceCorners places a face descriptor of the voxel at (x, y, z). Corners
// wind counter-clockwise around the face normal; fill faces point back into
// the cell.
func faceCorners(x, y, z int, fd blocks.FaceDescriptor) [4]mgl32.Vec3 {
	d := fd.Facing.Axis()
	u := (d + 1) % 3
	v := (d + 2) % 3
	p := [3]float32{float32(x), float32(y), float32(z)}

	var origin, du, dv mgl32.Vec3
	origin[d] = p[d] + fd.Offset
	if fd.Facing.Positive() {
		origin[d] = p[d] + 1 - fd.Offset
	}
	origin[u] = p[u]
	origin[v] = p[v]
	du[u] = 1
	dv[v] = 1

	// Side faces may cover only part of the cell height.
	if fd.Facing.Horizontal() {
		minY, maxY := fd.MinY, fd.MaxY
		if maxY <= minY {
			minY, maxY = 0, 1
		}
		origin[1] = p[1] + minY
		if u == 1 {
			du[1] = maxY - minY
		} else {
			dv[1] = maxY - minY
		}
	}

	c0 := origin
	c1 := origin.Add(du)
	c2 := origin.Add(du).Add(dv)
	c3 := origin.Add(dv)
	outward := fd.Facing.Positive() != fd.Fill
	if outward {
		return [4]mgl32.Vec3{c0, c1, c2, c3}
	}
	return [4]mgl32.Vec3{c0, c3, c2, c1}
}

func (g *Geometry) appendQuad(corners [4]mgl32.Vec3, color mgl32.Vec3, paletteIndex float32, withPalette bool) {
	base := uint32(len(g.Positions) / 3)
	normal := corners[1].Sub(corners[0]).Cross(corners[3].Sub(corners[0])).Normalize()
	for _, c := range corners {
		g.Positions = append(g.Positions, c[0], c[1], c[2])
		g.Normals = append(g.Normals, normal[0], normal[1], normal[2])
		g.Colors = append(g.Colors, color[0], color[1], color[2])
		if withPalette {
			g.PaletteIndices = append(g.PaletteIndices, paletteIndex)
		}
	}
	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}
