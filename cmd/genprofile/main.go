package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"

	"voxelgen/internal/blocks"
	"voxelgen/internal/config"
	"voxelgen/internal/mesh"
	"voxelgen/internal/terrain"
	"voxelgen/internal/world"
)

type chunkStats struct {
	voxels      int
	naiveFaces  int
	greedyQuads int
	generate    time.Duration
	mesh        time.Duration
}

func main() {
	var (
		cfgPath       = flag.String("config", "", "optional configuration file supplying terrain, chunk, storage and atlas settings")
		generator     = flag.String("generator", terrain.Islands, "generator variant: islands, hilly or flat")
		seed          = flag.String("seed", "profile", "world seed")
		chunksPerAxis = flag.Int("chunks", 3, "chunks per axis to generate")
		concurrency   = flag.Int("concurrency", runtime.NumCPU(), "number of concurrent workers")
		verbose       = flag.Bool("v", false, "log per-chunk generation progress")
	)
	flag.Parse()

	if *chunksPerAxis <= 0 {
		fmt.Fprintln(os.Stderr, "chunks must be positive")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency must be positive")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	registry, err := blocks.Default(blocks.Atlas{
		Width:    cfg.Blocks.AtlasWidth,
		Height:   cfg.Blocks.AtlasHeight,
		TileSize: cfg.Blocks.TileSize,
		Textures: cfg.Blocks.Textures,
	})
	if err != nil {
		log.Fatalf("block registry: %v", err)
	}
	if !terrain.Known(*generator) {
		log.Fatalf("%v %q", terrain.ErrUnknownGenerator, *generator)
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "genprofile ", log.LstdFlags|log.Lmicroseconds)
	}
	size := world.SizeFromConfig(cfg.Chunk)
	store, err := world.OpenStore(cfg.Storage)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()
	// Chunks already in the configured store are profiled from there.
	manager := world.NewManager(store, world.NewBuilder(size, logger), world.ManagerOptions{
		FormatVersion: cfg.Chunk.FormatVersion,
		Logger:        logger,
	})

	// One generator per worker keeps height caches unshared.
	gens := make(chan *terrain.Generator, *concurrency)
	for i := 0; i < *concurrency; i++ {
		gen, err := terrain.New(*generator, *seed, cfg.Terrain)
		if err != nil {
			log.Fatalf("generator: %v", err)
		}
		gens <- gen
	}

	var (
		mu        sync.Mutex
		total     chunkStats
		failures  atomic.Int64
		processed atomic.Int64
	)
	ctx := context.Background()
	pool := pond.NewPool(*concurrency)
	startWall := time.Now()

	for x := 0; x < *chunksPerAxis; x++ {
		for z := 0; z < *chunksPerAxis; z++ {
			coord := world.ChunkCoord{X: x, Z: z}
			pool.Submit(func() {
				gen := <-gens
				defer func() { gens <- gen }()

				stats, err := profileChunk(ctx, manager, gen, registry, coord)
				if err != nil {
					failures.Add(1)
					fmt.Fprintf(os.Stderr, "chunk %v: %v\n", coord, err)
					return
				}
				processed.Add(1)
				mu.Lock()
				total.voxels += stats.voxels
				total.naiveFaces += stats.naiveFaces
				total.greedyQuads += stats.greedyQuads
				total.generate += stats.generate
				total.mesh += stats.mesh
				mu.Unlock()
			})
		}
	}
	pool.StopAndWait()
	wallDuration := time.Since(startWall)
	manager.Wait()

	n := processed.Load()
	fmt.Println("== Chunk Generation Profile ==")
	fmt.Printf("Generator: %s, seed %q\n", *generator, *seed)
	fmt.Printf("Chunks: %d (%d per axis), failures: %d\n", n, *chunksPerAxis, failures.Load())
	fmt.Printf("Chunk dimensions: %dx%dx%d\n", size.X, size.Y, size.Z)
	fmt.Printf("Concurrency: %d, store: %s\n", *concurrency, cfg.Storage.Driver)
	fmt.Printf("Wall clock duration: %s\n", wallDuration)
	if n == 0 {
		return
	}
	fmt.Printf("Average fetch or generation time: %s\n", total.generate/time.Duration(n))
	fmt.Printf("Average meshing time: %s\n", total.mesh/time.Duration(n))
	fmt.Printf("Average voxels per chunk: %.1f\n", float64(total.voxels)/float64(n))
	fmt.Printf("Naive faces: %d, greedy quads: %d", total.naiveFaces, total.greedyQuads)
	if total.naiveFaces > 0 {
		fmt.Printf(" (%.1f%% of naive)", float64(total.greedyQuads)/float64(total.naiveFaces)*100)
	}
	fmt.Println()
}

func profileChunk(ctx context.Context, manager *world.Manager, gen *terrain.Generator, registry *blocks.Registry, coord world.ChunkCoord) (chunkStats, error) {
	var stats chunkStats

	start := time.Now()
	enc, err := manager.Chunk(ctx, gen, coord)
	if err != nil {
		return stats, err
	}
	stats.generate = time.Since(start)
	stats.voxels = enc.Len()
	chunk, err := world.Decode(coord, enc)
	if err != nil {
		return stats, err
	}

	start = time.Now()
	geo, err := mesh.Build(enc, registry, mesh.BuildOptions{})
	if err != nil {
		return stats, err
	}
	stats.mesh = time.Since(start)
	stats.greedyQuads = geo.Quads()
	stats.naiveFaces = naiveFaces(chunk, registry)
	return stats, nil
}

// naiveFaces counts every visible voxel face without merging.
func naiveFaces(chunk *world.Chunk, registry *blocks.Registry) int {
	count := 0
	chunk.ForEach(func(x, y, z int, v world.Voxel) bool {
		for _, f := range blocks.Facings {
			o := f.Offset()
			if registry.IsVisible(v.Type, chunk.At(x+o[0], y+o[1], z+o[2]).Type) {
				count++
			}
		}
		return true
	})
	return count
}
