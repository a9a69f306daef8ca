// Package scheduler runs chunk generation requests on a fixed set of worker
// slots. Pending requests wait in a priority queue and are only taken when a
// slot is free, so a later request with a lower priority value overtakes
// work that has not started yet.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"voxelgen/internal/config"
	"voxelgen/internal/noise"
	"voxelgen/internal/terrain"
	"voxelgen/internal/world"
)

var (
	ErrQueueFull  = errors.New("scheduler queue full")
	ErrClosed     = errors.New("scheduler closed")
	ErrOutOfRange = errors.New("chunk coordinate out of range")
)

// maxBlockCoord bounds the block coordinates a request may cover. Height
// samples reach past the chunk (neighbor scans, offset peak columns), and
// memo keys alias once a coordinate reaches noise.KeyStride.
const maxBlockCoord = noise.KeyStride / 2

// Request asks for the chunk at (X, Z) of one generator and seed. Lower
// Priority values run first.
type Request struct {
	X         int    `json:"x"`
	Z         int    `json:"z"`
	Seed      string `json:"seed"`
	Generator string `json:"generatorType"`
	Priority  int    `json:"priority"`
}

func (r Request) Coord() world.ChunkCoord {
	return world.ChunkCoord{X: r.X, Z: r.Z}
}

type Result struct {
	ID      uuid.UUID
	Request Request
	Key     world.Key
	Chunk   *world.EncodedChunk
	// Cached is set when the chunk came from the store.
	Cached bool
	Err    error
}

// Ticket tracks one submitted request.
type Ticket struct {
	ID      uuid.UUID
	Request Request

	ctx    context.Context
	cancel context.CancelFunc
	sched  *Scheduler
	item   *item

	once   sync.Once
	done   chan struct{}
	result Result
}

// Done is closed once the result is available.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (t *Ticket) Result() Result {
	<-t.done
	return t.result
}

// Wait blocks until the ticket completes or ctx ends.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, t.result.Err
	case <-ctx.Done():
		return Result{ID: t.ID, Request: t.Request}, ctx.Err()
	}
}

// Cancel withdraws a queued request or aborts a running one. Cancelling a
// finished ticket has no effect.
func (t *Ticket) Cancel() {
	t.cancel()
	if t.sched.dequeue(t) {
		t.sched.finish(t, Result{ID: t.ID, Request: t.Request, Err: context.Canceled})
	}
}

type Options struct {
	Workers     int
	QueueLimit  int
	SaveTimeout time.Duration
	// PollInterval bounds how long an idle dispatcher sleeps between queue checks.
	PollInterval time.Duration
	Terrain      config.TerrainConfig
	// Generators restricts the accepted generator kinds. Empty accepts every known kind.
	Generators []string
	Logger     *log.Logger
	// Observer is called once per finished ticket, before its Done channel closes.
	Observer func(Result)
}

// OptionsFromConfig maps the scheduler and terrain sections of cfg.
func OptionsFromConfig(cfg *config.Config, logger *log.Logger) Options {
	return Options{
		Workers:      cfg.Scheduler.Workers,
		QueueLimit:   cfg.Scheduler.QueueLimit,
		SaveTimeout:  cfg.Scheduler.SaveTimeout.Duration(),
		PollInterval: cfg.Scheduler.PollInterval.Duration(),
		Terrain:      cfg.Terrain,
		Generators:   cfg.Terrain.Generators,
		Logger:       logger,
	}
}

type Scheduler struct {
	manager *world.Manager
	opts    Options
	logger  *log.Logger
	allowed map[string]struct{}

	mu    sync.Mutex
	queue queue

	engines chan *Engine
	wake    chan struct{}
	pool    pond.Pool

	base       context.Context
	cancelBase context.CancelFunc

	startOnce sync.Once
	stopRun   context.CancelFunc
	stopped   chan struct{}
	closed    atomic.Bool
	saves     sync.WaitGroup
}

// New creates a scheduler with one engine per worker slot. Call Start to
// begin dispatching and Close to release the workers.
func New(manager *world.Manager, opts Options) (*Scheduler, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 16 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	allowed := make(map[string]struct{})
	kinds := opts.Generators
	if len(kinds) == 0 {
		kinds = terrain.Kinds()
	}
	for _, kind := range kinds {
		if !terrain.Known(kind) {
			return nil, fmt.Errorf("scheduler: %w %q", terrain.ErrUnknownGenerator, kind)
		}
		allowed[kind] = struct{}{}
	}

	engines := make(chan *Engine, opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		eng, err := newEngine(i, opts.Terrain, 0)
		if err != nil {
			return nil, err
		}
		engines <- eng
	}

	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		manager:    manager,
		opts:       opts,
		logger:     opts.Logger,
		allowed:    allowed,
		engines:    engines,
		wake:       make(chan struct{}, 1),
		pool:       pond.NewPool(opts.Workers),
		base:       base,
		cancelBase: cancel,
		stopped:    make(chan struct{}),
	}, nil
}

// Submit queues a request and returns its ticket.
func (s *Scheduler) Submit(req Request) (*Ticket, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if _, ok := s.allowed[req.Generator]; !ok {
		return nil, fmt.Errorf("%w %q", terrain.ErrUnknownGenerator, req.Generator)
	}
	size := s.manager.Builder().Size()
	if !inRange(req.X, size.X) || !inRange(req.Z, size.Z) {
		return nil, fmt.Errorf("%w: chunk (%d, %d)", ErrOutOfRange, req.X, req.Z)
	}

	ctx, cancel := context.WithCancel(s.base)
	t := &Ticket{
		ID:      uuid.New(),
		Request: req,
		ctx:     ctx,
		cancel:  cancel,
		sched:   s,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	if s.opts.QueueLimit > 0 && s.queue.Len() >= s.opts.QueueLimit {
		s.mu.Unlock()
		cancel()
		return nil, ErrQueueFull
	}
	t.item = s.queue.push(t)
	s.mu.Unlock()

	s.signal()
	return t, nil
}

func inRange(chunk, width int) bool {
	lo := int64(chunk) * int64(width)
	hi := lo + int64(width) - 1
	return lo > -maxBlockCoord && hi < maxBlockCoord
}

// Pending returns the number of requests waiting for a worker slot.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Start launches the dispatcher. Dispatching stops when ctx ends or Close
// is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, stop := context.WithCancel(ctx)
		s.stopRun = stop
		go s.run(runCtx)
	})
}

// Close stops dispatching, aborts running work, fails every queued ticket
// with ErrClosed and waits for pending saves.
func (s *Scheduler) Close() {
	if s.closed.Swap(true) {
		return
	}
	started := true
	s.startOnce.Do(func() { started = false })
	if started {
		s.stopRun()
		<-s.stopped
	}
	s.cancelBase()
	s.pool.StopAndWait()

	s.mu.Lock()
	queued := s.queue.drain()
	s.mu.Unlock()
	for _, t := range queued {
		t.cancel()
		s.finish(t, Result{ID: t.ID, Request: t.Request, Err: ErrClosed})
	}
	s.saves.Wait()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dequeue(t *Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.remove(t.item)
}

func (s *Scheduler) next() *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pop()
}

// run takes a free engine first and only then the best pending request.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		var eng *Engine
		select {
		case <-ctx.Done():
			return
		case eng = <-s.engines:
		}

		t := s.next()
		for t == nil {
			select {
			case <-ctx.Done():
				s.engines <- eng
				return
			case <-s.wake:
			case <-ticker.C:
			}
			t = s.next()
		}

		s.pool.Submit(func() {
			defer func() {
				s.engines <- eng
				s.signal()
			}()
			s.execute(eng, t)
		})
	}
}

func (s *Scheduler) execute(eng *Engine, t *Ticket) {
	req := t.Request
	coord := req.Coord()
	res := Result{ID: t.ID, Request: req, Key: s.manager.Key(req.Generator, req.Seed, coord)}

	if err := t.ctx.Err(); err != nil {
		res.Err = err
		s.finish(t, res)
		return
	}

	chunk, ok, err := s.manager.Lookup(t.ctx, res.Key)
	if err != nil {
		s.logger.Printf("scheduler: %v; generating instead", err)
	} else if ok {
		res.Chunk, res.Cached = chunk, true
		s.finish(t, res)
		return
	}

	gen, err := eng.Generator(req.Generator, req.Seed)
	if err != nil {
		res.Err = err
		s.finish(t, res)
		return
	}
	start := time.Now()
	chunk, err = s.manager.Generate(t.ctx, gen, coord)
	if err != nil {
		res.Err = err
		s.finish(t, res)
		return
	}
	s.logger.Printf("engine %d generated chunk %s in %s", eng.ID(), res.Key, time.Since(start).Round(time.Millisecond))

	res.Chunk = chunk
	s.finish(t, res)
	s.saveAsync(res.Key, chunk)
}

func (s *Scheduler) saveAsync(key world.Key, chunk *world.EncodedChunk) {
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
		defer cancel()
		if err := s.manager.Save(ctx, key, chunk); err != nil {
			s.logger.Printf("scheduler: %v", err)
		}
	}()
}

func (s *Scheduler) finish(t *Ticket, res Result) {
	t.once.Do(func() {
		t.result = res
		if s.opts.Observer != nil {
			s.opts.Observer(res)
		}
		close(t.done)
		t.cancel()
	})
}
