package world

import (
	"errors"
	"fmt"

	"voxelgen/internal/blocks"
)

var ErrMalformedChunk = errors.New("malformed encoded chunk")

// Chunk stores a dense voxel grid. Its size is fixed at construction.
type Chunk struct {
	Coord  ChunkCoord
	size   Size
	voxels []Voxel
}

func NewChunk(coord ChunkCoord, size Size) *Chunk {
	return &Chunk{
		Coord:  coord,
		size:   size,
		voxels: make([]Voxel, size.Volume()),
	}
}

func (c *Chunk) Size() Size {
	return c.size
}

// Origin returns the global coordinate of the local (0,0,0) voxel.
func (c *Chunk) Origin() BlockCoord {
	return c.Coord.Origin(c.size)
}

func (c *Chunk) index(x, y, z int) (int, bool) {
	if x < 0 || y < 0 || z < 0 || x >= c.size.X || y >= c.size.Y || z >= c.size.Z {
		return 0, false
	}
	return (y*c.size.Z+z)*c.size.X + x, true
}

// At returns the voxel at a local coordinate. Cells outside the chunk are air.
func (c *Chunk) At(x, y, z int) Voxel {
	idx, ok := c.index(x, y, z)
	if !ok {
		return Voxel{}
	}
	return c.voxels[idx]
}

// Set stores v at a local coordinate and reports whether it was in range.
func (c *Chunk) Set(x, y, z int, v Voxel) bool {
	idx, ok := c.index(x, y, z)
	if !ok {
		return false
	}
	c.voxels[idx] = v
	return true
}

// Count returns the number of non-air voxels.
func (c *Chunk) Count() int {
	n := 0
	for _, v := range c.voxels {
		if !v.IsAir() {
			n++
		}
	}
	return n
}

// ForEach visits every non-air voxel in storage order.
func (c *Chunk) ForEach(fn func(x, y, z int, v Voxel) bool) {
	for y := 0; y < c.size.Y; y++ {
		for z := 0; z < c.size.Z; z++ {
			row := (y*c.size.Z + z) * c.size.X
			for x := 0; x < c.size.X; x++ {
				v := c.voxels[row+x]
				if v.IsAir() {
					continue
				}
				if !fn(x, y, z, v) {
					return
				}
			}
		}
	}
}

// EncodedChunk is the palette-indexed wire and storage form of a chunk.
// Data holds one (x, y, z, paletteIndex) quadruple per non-air voxel.
type EncodedChunk struct {
	Size    Size   `json:"size"`
	Palette []RGBA `json:"palette"`
	// Types holds the block type id of each palette entry. It is omitted
	// when every voxel is dirt.
	Types []int `json:"types,omitempty"`
	Data  []int `json:"data"`
}

// Len returns the number of encoded voxels.
func (e *EncodedChunk) Len() int {
	return len(e.Data) / 4
}

// TypeOf returns the block type of a palette entry.
func (e *EncodedChunk) TypeOf(paletteIndex int) blocks.ID {
	if paletteIndex < 0 || paletteIndex >= len(e.Types) {
		return blocks.Dirt
	}
	return blocks.ID(e.Types[paletteIndex])
}

type paletteEntry struct {
	color RGBA
	kind  blocks.ID
}

// Encode builds the palette-indexed form. Palette entries appear in first
// use order and are distinct per color and block type.
func (c *Chunk) Encode() *EncodedChunk {
	enc := &EncodedChunk{
		Size:    c.size,
		Palette: []RGBA{},
		Data:    make([]int, 0, 64),
	}
	lookup := make(map[paletteEntry]int)
	var kinds []int
	onlyDirt := true

	c.ForEach(func(x, y, z int, v Voxel) bool {
		key := paletteEntry{color: v.Color.RGBA(), kind: v.Type}
		idx, ok := lookup[key]
		if !ok {
			idx = len(enc.Palette)
			lookup[key] = idx
			enc.Palette = append(enc.Palette, key.color)
			kinds = append(kinds, int(v.Type))
			if v.Type != blocks.Dirt {
				onlyDirt = false
			}
		}
		enc.Data = append(enc.Data, x, y, z, idx)
		return true
	})
	if !onlyDirt {
		enc.Types = kinds
	}
	return enc
}

// Decode reconstructs the non-air voxels of an encoded chunk. Palette class
// and low detail color are not part of the encoded form; decoded voxels are
// ground voxels whose low detail color equals their color.
func Decode(coord ChunkCoord, enc *EncodedChunk) (*Chunk, error) {
	if enc == nil {
		return nil, fmt.Errorf("%w: nil chunk", ErrMalformedChunk)
	}
	if !enc.Size.Valid() {
		return nil, fmt.Errorf("%w: size %+v", ErrMalformedChunk, enc.Size)
	}
	if len(enc.Data)%4 != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a multiple of 4", ErrMalformedChunk, len(enc.Data))
	}
	if len(enc.Types) != 0 && len(enc.Types) != len(enc.Palette) {
		return nil, fmt.Errorf("%w: %d types for %d palette entries", ErrMalformedChunk, len(enc.Types), len(enc.Palette))
	}
	chunk := NewChunk(coord, enc.Size)
	for i := 0; i < len(enc.Data); i += 4 {
		x, y, z, idx := enc.Data[i], enc.Data[i+1], enc.Data[i+2], enc.Data[i+3]
		if idx < 0 || idx >= len(enc.Palette) {
			return nil, fmt.Errorf("%w: palette index %d out of range", ErrMalformedChunk, idx)
		}
		color := enc.Palette[idx].RGB()
		v := Voxel{
			Type:        enc.TypeOf(idx),
			Color:       color,
			LowLODColor: color,
			Palette:     PaletteGround,
		}
		if !chunk.Set(x, y, z, v) {
			return nil, fmt.Errorf("%w: voxel (%d,%d,%d) outside %+v", ErrMalformedChunk, x, y, z, enc.Size)
		}
	}
	return chunk, nil
}
