package world

import (
	"context"
	"errors"
	"fmt"

	"voxelgen/internal/config"
)

var ErrStoreClosed = errors.New("chunk store closed")

// Store persists encoded chunks by key. Implementations are safe for
// concurrent use and never hand out chunks shared with their own state.
type Store interface {
	Load(ctx context.Context, key Key) (*EncodedChunk, bool, error)
	Save(ctx context.Context, key Key, chunk *EncodedChunk) error
	Delete(ctx context.Context, key Key) error
	ForEach(ctx context.Context, fn func(key Key, chunk *EncodedChunk) bool) error
	Close() error
}

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "disk":
		return OpenDiskStore(cfg.Path, cfg.CompressionLevel)
	case "sqlite":
		return OpenSQLiteStore(cfg.Path, cfg.CompressionLevel)
	default:
		return nil, fmt.Errorf("open chunk store: unknown driver %q", cfg.Driver)
	}
}

func cloneEncoded(c *EncodedChunk) *EncodedChunk {
	if c == nil {
		return nil
	}
	dup := &EncodedChunk{
		Size:    c.Size,
		Palette: append([]RGBA(nil), c.Palette...),
		Data:    append([]int(nil), c.Data...),
	}
	if c.Palette != nil && dup.Palette == nil {
		dup.Palette = []RGBA{}
	}
	if c.Types != nil {
		dup.Types = append([]int(nil), c.Types...)
	}
	if c.Data != nil && dup.Data == nil {
		dup.Data = []int{}
	}
	return dup
}
