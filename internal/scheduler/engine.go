package scheduler

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"voxelgen/internal/config"
	"voxelgen/internal/terrain"
)

const defaultEngineGenerators = 8

// Engine is the generation state owned by one worker slot. Generators and
// their height caches are never shared between engines.
type Engine struct {
	id         int
	cfg        config.TerrainConfig
	generators *lru.Cache[string, *terrain.Generator]
}

func newEngine(id int, cfg config.TerrainConfig, size int) (*Engine, error) {
	if size <= 0 {
		size = defaultEngineGenerators
	}
	cache, err := lru.New[string, *terrain.Generator](size)
	if err != nil {
		return nil, fmt.Errorf("engine %d generator cache: %w", id, err)
	}
	return &Engine{id: id, cfg: cfg, generators: cache}, nil
}

func (e *Engine) ID() int {
	return e.id
}

// Generator returns the engine's generator for kind and seed, creating it on
// first use. Recently used generators keep their warm height caches.
func (e *Engine) Generator(kind, seed string) (*terrain.Generator, error) {
	key := kind + "/" + seed
	if gen, ok := e.generators.Get(key); ok {
		return gen, nil
	}
	gen, err := terrain.New(kind, seed, e.cfg)
	if err != nil {
		return nil, err
	}
	e.generators.Add(key, gen)
	return gen, nil
}
