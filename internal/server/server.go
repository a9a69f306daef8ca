// Package server wires configuration, storage, generation and transport into
// a runnable generation server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"voxelgen/internal/blocks"
	"voxelgen/internal/config"
	"voxelgen/internal/scheduler"
	"voxelgen/internal/terrain"
	"voxelgen/internal/transport/ws"
	"voxelgen/internal/world"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg       *config.Config
	logger    *log.Logger
	registry  *blocks.Registry
	store     world.Store
	manager   *world.Manager
	scheduler *scheduler.Scheduler
	ws        *ws.Server
}

func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := log.New(log.Writer(), "voxelgen ", log.LstdFlags|log.Lmicroseconds)

	// Unknown generators and unresolved textures are configuration errors.
	for _, kind := range cfg.Terrain.Generators {
		if _, err := terrain.New(kind, "config-check", cfg.Terrain); err != nil {
			return nil, err
		}
	}
	registry, err := blocks.Default(blocks.Atlas{
		Width:    cfg.Blocks.AtlasWidth,
		Height:   cfg.Blocks.AtlasHeight,
		TileSize: cfg.Blocks.TileSize,
		Textures: cfg.Blocks.Textures,
	})
	if err != nil {
		return nil, fmt.Errorf("block registry: %w", err)
	}

	store, err := world.OpenStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	builder := world.NewBuilder(world.SizeFromConfig(cfg.Chunk), logger)
	manager := world.NewManager(store, builder, world.ManagerOptions{
		FormatVersion: cfg.Chunk.FormatVersion,
		PreviewDir:    cfg.Server.PreviewDir,
		Logger:        logger,
	})
	sched, err := scheduler.New(manager, scheduler.OptionsFromConfig(cfg, logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	wsSrv := ws.NewServer(sched, registry, ws.Options{
		ServerID:         cfg.Server.ID,
		Generators:       cfg.Terrain.Generators,
		ChunkSize:        world.SizeFromConfig(cfg.Chunk),
		FormatVersion:    cfg.Chunk.FormatVersion,
		HandshakeTimeout: cfg.Server.HandshakeTimeout.Duration(),
		ReadTimeout:      cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:     cfg.Server.WriteTimeout.Duration(),
	}, logger)

	return &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		store:     store,
		manager:   manager,
		scheduler: sched,
		ws:        wsSrv,
	}, nil
}

// Handler returns the HTTP routes: the websocket endpoint and a health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.ws.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(rw, "ok %s pending=%d\n", s.cfg.Server.ID, s.scheduler.Pending())
	})
	return mux
}

// Run serves until ctx ends, then drains the scheduler and closes the store.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		s.shutdown()
		return fmt.Errorf("listen %s: %w", s.cfg.Server.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.shutdown()

	s.scheduler.Start(ctx)
	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.Server.HandshakeTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	s.logger.Printf("%s listening on %s (generators %v, store %s)", s.cfg.Server.ID, ln.Addr(), s.cfg.Terrain.Generators, s.cfg.Storage.Driver)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("http shutdown: %v", err)
	}
	return ctx.Err()
}

func (s *Server) shutdown() {
	s.scheduler.Close()
	s.manager.Wait()
	if err := s.store.Close(); err != nil {
		s.logger.Printf("close store: %v", err)
	}
}
