package world

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Manager ties chunk generation to the persistent chunk store. Previews of
// freshly generated chunks are written in the background when a preview
// directory is configured.
type Manager struct {
	store         Store
	builder       *Builder
	formatVersion int
	previewDir    string
	logger        *log.Logger

	previews sync.WaitGroup
}

type ManagerOptions struct {
	FormatVersion int
	PreviewDir    string
	Logger        *log.Logger
}

func NewManager(store Store, builder *Builder, opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.FormatVersion <= 0 {
		opts.FormatVersion = 1
	}
	return &Manager{
		store:         store,
		builder:       builder,
		formatVersion: opts.FormatVersion,
		previewDir:    opts.PreviewDir,
		logger:        opts.Logger,
	}
}

func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) Builder() *Builder {
	return m.builder
}

// Key returns the store key of a chunk for the current format version.
func (m *Manager) Key(generator, seed string, coord ChunkCoord) Key {
	return Key{Generator: generator, Seed: seed, Coord: coord, FormatVersion: m.formatVersion}
}

// Lookup returns a stored chunk if one exists.
func (m *Manager) Lookup(ctx context.Context, key Key) (*EncodedChunk, bool, error) {
	chunk, ok, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("lookup chunk %s: %w", key, err)
	}
	return chunk, ok, nil
}

// Generate builds and encodes the chunk at coord. It does not persist it.
func (m *Manager) Generate(ctx context.Context, gen Generator, coord ChunkCoord) (*EncodedChunk, error) {
	chunk, err := m.builder.Build(ctx, gen, coord)
	if err != nil {
		return nil, fmt.Errorf("generate chunk %v: %w", coord, err)
	}
	if m.previewDir != "" {
		key := m.Key(gen.Kind(), gen.Seed(), coord)
		m.previews.Add(1)
		go func() {
			defer m.previews.Done()
			path, err := SaveChunkPreview(chunk, key, m.previewDir)
			if err != nil {
				m.logger.Printf("chunk %s preview failed: %v", key, err)
				return
			}
			m.logger.Printf("chunk %s preview written to %s", key, path)
		}()
	}
	return chunk.Encode(), nil
}

// Chunk returns the stored chunk for gen at coord, generating and saving it
// when the store has none.
func (m *Manager) Chunk(ctx context.Context, gen Generator, coord ChunkCoord) (*EncodedChunk, error) {
	key := m.Key(gen.Kind(), gen.Seed(), coord)
	if chunk, ok, err := m.Lookup(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return chunk, nil
	}
	chunk, err := m.Generate(ctx, gen, coord)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, key, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

func (m *Manager) Save(ctx context.Context, key Key, chunk *EncodedChunk) error {
	if err := m.store.Save(ctx, key, chunk); err != nil {
		return fmt.Errorf("save chunk %s: %w", key, err)
	}
	return nil
}

// Wait blocks until pending previews are written.
func (m *Manager) Wait() {
	m.previews.Wait()
}
