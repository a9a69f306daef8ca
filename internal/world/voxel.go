package world

import "voxelgen/internal/blocks"

// RGB is an 8-bit per channel color.
type RGB struct {
	R, G, B uint8
}

// RGBA is a palette entry. Generated voxels are always opaque.
type RGBA [4]uint8

func (c RGB) RGBA() RGBA {
	return RGBA{c.R, c.G, c.B, 0xff}
}

func (c RGBA) RGB() RGB {
	return RGB{R: c[0], G: c[1], B: c[2]}
}

// PaletteClass tells ordinary ground from steep dropoff cells.
type PaletteClass uint8

const (
	PaletteNone PaletteClass = iota
	PaletteGround
	PaletteEdge
)

func (p PaletteClass) String() string {
	switch p {
	case PaletteGround:
		return "ground"
	case PaletteEdge:
		return "edge"
	default:
		return "none"
	}
}

// Voxel is a single generated cell. Air voxels are the zero value.
type Voxel struct {
	Type        blocks.ID
	Color       RGB
	LowLODColor RGB
	Palette     PaletteClass
}

func (v Voxel) IsAir() bool {
	return v.Type == blocks.Air
}
