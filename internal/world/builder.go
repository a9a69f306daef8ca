package world

import (
	"context"
	"log"

	"voxelgen/internal/blocks"
)

// Generator produces voxels for one (variant, seed) pair.
type Generator interface {
	Kind() string
	Seed() string
	// NewPass returns the context for generating one chunk volume. The
	// terrain pass runs over the whole volume before any feature is placed.
	NewPass(origin BlockCoord, size Size) Pass
}

// Pass classifies voxels of one chunk generation. Coordinates are global.
type Pass interface {
	Terrain(x, y, z int) Voxel
	Feature(x, y, z int, current blocks.ID) (Voxel, bool)
}

// Builder fills fixed size chunk volumes from a generator. It holds no
// state between builds and is safe for concurrent use.
type Builder struct {
	size   Size
	logger *log.Logger
}

func NewBuilder(size Size, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{size: size, logger: logger}
}

func (b *Builder) Size() Size {
	return b.size
}

// Build generates the chunk at coord. The context is checked once per column.
func (b *Builder) Build(ctx context.Context, gen Generator, coord ChunkCoord) (*Chunk, error) {
	chunk := NewChunk(coord, b.size)
	origin := chunk.Origin()
	pass := gen.NewPass(origin, b.size)

	totalColumns := b.size.X * b.size.Z
	if totalColumns <= 0 {
		b.logger.Printf("chunk %v generation progress: 100%%", coord)
		return chunk, nil
	}
	b.logger.Printf("chunk %v generation progress: 0%%", coord)

	// Terrain and feature passes each count for half of the progress.
	steps := totalColumns * 2
	done := 0
	nextLogPercent := 10
	report := func() {
		done++
		progress := done * 100 / steps
		if progress >= nextLogPercent {
			b.logger.Printf("chunk %v generation progress: %d%%", coord, progress)
			nextLogPercent = ((progress / 10) + 1) * 10
		}
	}

	for x := 0; x < b.size.X; x++ {
		for z := 0; z < b.size.Z; z++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for y := 0; y < b.size.Y; y++ {
				chunk.Set(x, y, z, pass.Terrain(origin.X+x, y, origin.Z+z))
			}
			report()
		}
	}

	for x := 0; x < b.size.X; x++ {
		for z := 0; z < b.size.Z; z++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for y := 0; y < b.size.Y; y++ {
				current := chunk.At(x, y, z)
				if v, ok := pass.Feature(origin.X+x, y, origin.Z+z, current.Type); ok {
					chunk.Set(x, y, z, v)
				}
			}
			report()
		}
	}
	return chunk, nil
}
