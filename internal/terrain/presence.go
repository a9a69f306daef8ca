package terrain

import (
	"github.com/bits-and-blooms/bitset"

	"voxelgen/internal/world"
)

// Presence records which cells of one chunk volume the terrain pass made
// solid. It is created per generation and handed from the terrain pass to
// the feature pass; cells outside the volume are not tracked.
type Presence struct {
	origin world.BlockCoord
	size   world.Size
	solid  *bitset.BitSet
	seen   *bitset.BitSet
}

func NewPresence(origin world.BlockCoord, size world.Size) *Presence {
	n := uint(size.Volume())
	return &Presence{
		origin: origin,
		size:   size,
		solid:  bitset.New(n),
		seen:   bitset.New(n),
	}
}

func (p *Presence) index(x, y, z int) (uint, bool) {
	lx, ly, lz := x-p.origin.X, y-p.origin.Y, z-p.origin.Z
	if lx < 0 || ly < 0 || lz < 0 || lx >= p.size.X || ly >= p.size.Y || lz >= p.size.Z {
		return 0, false
	}
	return uint((ly*p.size.Z+lz)*p.size.X + lx), true
}

// Record stores the classification of a global cell.
func (p *Presence) Record(x, y, z int, solid bool) {
	idx, ok := p.index(x, y, z)
	if !ok {
		return
	}
	p.seen.Set(idx)
	p.solid.SetTo(idx, solid)
}

// Solid returns the recorded state of a cell and whether it was recorded.
func (p *Presence) Solid(x, y, z int) (solid, known bool) {
	idx, ok := p.index(x, y, z)
	if !ok || !p.seen.Test(idx) {
		return false, false
	}
	return p.solid.Test(idx), true
}

// Count returns the number of solid cells recorded.
func (p *Presence) Count() uint {
	return p.solid.Count()
}
