// Package blocks holds the per-type visibility and face emission rules the
// mesher consults. Types are registered by integer id; there is no type
// hierarchy, only the BlockType capability set.
package blocks

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ID identifies a block type. The zero value is air.
type ID uint8

const (
	Air ID = iota
	Dirt
	Glass
	Water
	Feature
)

var (
	ErrUnresolvedTexture = errors.New("unresolved texture reference")
	ErrDuplicateType     = errors.New("block type already registered")
)

// Flags are the static rendering properties of a block type.
type Flags struct {
	Transparent bool
	Culling     bool
	AO          bool
	// Mergeable types are meshed by the greedy mesher; the rest emit their
	// own per-voxel faces through BlockType.Faces.
	Mergeable bool
}

// BlockType is the plugin contract for a registered block type.
type BlockType interface {
	ID() ID
	Name() string
	Flags() Flags
	IsVisible(self, neighbor ID) bool
	Faces(ctx FaceContext) []FaceDescriptor
	Textures() map[Facing]string
}

// Rect is a pixel rectangle inside the texture atlas.
type Rect struct {
	X, Y int
	W, H int
}

// Atlas resolves texture references to tiles of a square-tiled texture atlas.
type Atlas struct {
	Width    int
	Height   int
	TileSize int
	Textures map[string]int
}

// Resolve returns the atlas rectangle of ref.
func (a Atlas) Resolve(ref string) (Rect, bool) {
	tile, ok := a.Textures[ref]
	if !ok || a.TileSize <= 0 {
		return Rect{}, false
	}
	cols := a.Width / a.TileSize
	rows := a.Height / a.TileSize
	if cols <= 0 || tile < 0 || tile >= cols*rows {
		return Rect{}, false
	}
	return Rect{
		X: (tile % cols) * a.TileSize,
		Y: (tile / cols) * a.TileSize,
		W: a.TileSize,
		H: a.TileSize,
	}, true
}

// Registry maps block ids to their types and resolved textures.
type Registry struct {
	atlas Atlas

	mu       sync.RWMutex
	types    [256]BlockType
	textures [256]map[Facing]Rect
}

func NewRegistry(atlas Atlas) *Registry {
	return &Registry{atlas: atlas}
}

// Register adds t to the registry. Every texture the type references must
// resolve against the atlas; failures are configuration errors.
func (r *Registry) Register(t BlockType) error {
	if t == nil {
		return fmt.Errorf("register block type: nil type")
	}
	id := t.ID()

	resolved := make(map[Facing]Rect, len(t.Textures()))
	facings := make([]Facing, 0, len(t.Textures()))
	for facing := range t.Textures() {
		facings = append(facings, facing)
	}
	sort.Slice(facings, func(i, j int) bool { return facings[i] < facings[j] })
	for _, facing := range facings {
		ref := t.Textures()[facing]
		rect, ok := r.atlas.Resolve(ref)
		if !ok {
			return fmt.Errorf("register block %s face %s: %w %q", t.Name(), facing, ErrUnresolvedTexture, ref)
		}
		resolved[facing] = rect
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types[id] != nil {
		return fmt.Errorf("register block %s (id %d): %w", t.Name(), id, ErrDuplicateType)
	}
	r.types[id] = t
	r.textures[id] = resolved
	return nil
}

// Type returns the registered type for id.
func (r *Registry) Type(id ID) (BlockType, bool) {
	r.mu.RLock()
	t := r.types[id]
	r.mu.RUnlock()
	return t, t != nil
}

// Flags returns the flags of id. Unknown ids report as air-like.
func (r *Registry) Flags(id ID) Flags {
	t, ok := r.Type(id)
	if !ok {
		return Flags{Transparent: true}
	}
	return t.Flags()
}

// IsVisible reports whether the face of self toward neighbor is drawn.
func (r *Registry) IsVisible(self, neighbor ID) bool {
	t, ok := r.Type(self)
	if !ok {
		return false
	}
	return t.IsVisible(self, neighbor)
}

// Texture returns the atlas rectangle for a face of id.
func (r *Registry) Texture(id ID, facing Facing) (Rect, string, bool) {
	r.mu.RLock()
	t := r.types[id]
	rect, ok := r.textures[id][facing]
	r.mu.RUnlock()
	if !ok || t == nil {
		return Rect{}, "", false
	}
	return rect, t.Textures()[facing], true
}

// Default registers the built-in air, dirt, glass, water and feature types.
func Default(atlas Atlas) (*Registry, error) {
	r := NewRegistry(atlas)
	for _, t := range []BlockType{
		airType{},
		newDirt(r),
		newGlass(r),
		newWater(r),
		newFeature(r),
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
