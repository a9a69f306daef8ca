package world

import "voxelgen/internal/config"

// ChunkCoord identifies a chunk column in global chunk space.
type ChunkCoord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// BlockCoord describes a voxel position in global block space. Y is up.
type BlockCoord struct {
	X int
	Y int
	Z int
}

// Size defines the extent of a chunk in voxels.
type Size struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (s Size) Volume() int {
	return s.X * s.Y * s.Z
}

func (s Size) Valid() bool {
	return s.X > 0 && s.Y > 0 && s.Z > 0
}

// SizeFromConfig returns the configured chunk size.
func SizeFromConfig(cfg config.ChunkConfig) Size {
	return Size{X: cfg.Width, Y: cfg.Height, Z: cfg.Depth}
}

// Origin returns the global block coordinate of the chunk's minimum corner.
func (c ChunkCoord) Origin(size Size) BlockCoord {
	return BlockCoord{X: c.X * size.X, Y: 0, Z: c.Z * size.Z}
}

// LocateBlock returns the chunk that owns the block column at (x, z).
func LocateBlock(block BlockCoord, size Size) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(block.X, size.X),
		Z: floorDiv(block.Z, size.Z),
	}
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
