// Package ws serves chunk generation over websocket connections.
package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelgen/internal/blocks"
	"voxelgen/internal/mesh"
	"voxelgen/internal/protocol"
	"voxelgen/internal/scheduler"
	"voxelgen/internal/terrain"
	"voxelgen/internal/world"
)

const outboxSize = 32

type Options struct {
	ServerID         string
	Generators       []string
	ChunkSize        world.Size
	FormatVersion    int
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

type Server struct {
	sched    *scheduler.Scheduler
	registry *blocks.Registry
	opts     Options
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(sched *scheduler.Scheduler, registry *blocks.Registry, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "ws ", log.LstdFlags|log.Lmicroseconds)
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Server{
		sched:    sched,
		registry: registry,
		opts:     opts,
		log:      logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   64 * 1024,
			WriteBufferSize:  64 * 1024,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// session is the per-connection state. Tickets are tracked so a client can
// cancel them and so they are cancelled when the connection drops.
type session struct {
	srv  *Server
	out  chan []byte
	done <-chan struct{}
	seq  atomic.Uint64

	mu      sync.Mutex
	tickets map[string]*scheduler.Ticket
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Printf("upgrade %s: %v", r.RemoteAddr, err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := &session{
			srv:     s,
			out:     make(chan []byte, outboxSize),
			done:    ctx.Done(),
			tickets: make(map[string]*scheduler.Ticket),
		}
		defer sess.cancelAll()

		sess.send(protocol.MessageHello, protocol.Hello{
			ServerID:      s.opts.ServerID,
			Generators:    s.opts.Generators,
			ChunkSize:     s.opts.ChunkSize,
			FormatVersion: s.opts.FormatVersion,
		})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Printf("read %s: %v", r.RemoteAddr, err)
				}
				return
			}
			env, err := protocol.Decode(msg)
			if err != nil {
				sess.fail("", "", protocol.ErrBadRequest, err.Error())
				continue
			}
			switch env.Type {
			case protocol.MessageGenerate:
				sess.generate(ctx, env.Payload)
			case protocol.MessageCancel:
				sess.cancel(env.Payload)
			default:
				sess.fail("", "", protocol.ErrBadRequest, "unsupported message type "+string(env.Type))
			}
		}
	}
}

func (c *session) send(msgType protocol.MessageType, payload any) {
	env, err := protocol.NewEnvelope(msgType, c.seq.Add(1), payload)
	if err != nil {
		c.srv.log.Printf("encode %s: %v", msgType, err)
		return
	}
	b, err := protocol.Encode(env)
	if err != nil {
		c.srv.log.Printf("encode %s: %v", msgType, err)
		return
	}
	select {
	case c.out <- b:
	case <-c.done:
	}
}

func (c *session) fail(ref, ticket, code, message string) {
	c.send(protocol.MessageError, protocol.Error{Ref: ref, Ticket: ticket, Code: code, Message: message})
}

func (c *session) generate(ctx context.Context, payload []byte) {
	req, err := protocol.DecodeGenerate(payload)
	if err != nil {
		c.fail("", "", protocol.ErrBadRequest, err.Error())
		return
	}
	ticket, err := c.srv.sched.Submit(scheduler.Request{
		X:         req.X,
		Z:         req.Z,
		Seed:      req.Seed,
		Generator: req.Generator,
		Priority:  req.Priority,
	})
	if err != nil {
		c.fail(req.Ref, "", errorCode(err), err.Error())
		return
	}

	id := ticket.ID.String()
	c.mu.Lock()
	c.tickets[id] = ticket
	c.mu.Unlock()
	c.send(protocol.MessageAccepted, protocol.Accepted{Ref: req.Ref, Ticket: id})

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.tickets, id)
			c.mu.Unlock()
		}()
		var res scheduler.Result
		select {
		case <-ctx.Done():
			return
		case <-ticket.Done():
			res = ticket.Result()
		}
		if res.Err != nil {
			c.fail(req.Ref, id, errorCode(res.Err), res.Err.Error())
			return
		}
		reply := protocol.Chunk{
			Ref:    req.Ref,
			Ticket: id,
			Key:    res.Key.String(),
			Cached: res.Cached,
			Chunk:  res.Chunk,
		}
		if req.Mesh {
			geo, err := mesh.Build(res.Chunk, c.srv.registry, mesh.BuildOptions{
				SkipAxes:     req.SkipAxes,
				PaletteIndex: req.PaletteIndex,
			})
			if err != nil {
				c.fail(req.Ref, id, protocol.ErrInternal, err.Error())
				return
			}
			reply.Geometry = geo
		}
		c.send(protocol.MessageChunk, reply)
	}()
}

func (c *session) cancel(payload []byte) {
	msg, err := protocol.DecodeCancel(payload)
	if err != nil {
		c.fail("", "", protocol.ErrBadRequest, err.Error())
		return
	}
	c.mu.Lock()
	ticket, ok := c.tickets[msg.Ticket]
	c.mu.Unlock()
	if !ok {
		c.fail("", msg.Ticket, protocol.ErrUnknownTicket, "ticket not pending")
		return
	}
	ticket.Cancel()
}

func (c *session) cancelAll() {
	c.mu.Lock()
	pending := make([]*scheduler.Ticket, 0, len(c.tickets))
	for _, t := range c.tickets {
		pending = append(pending, t)
	}
	c.mu.Unlock()
	for _, t := range pending {
		t.Cancel()
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, terrain.ErrUnknownGenerator):
		return protocol.ErrUnknownGenerator
	case errors.Is(err, scheduler.ErrOutOfRange):
		return protocol.ErrBadRequest
	case errors.Is(err, scheduler.ErrQueueFull):
		return protocol.ErrQueueFull
	case errors.Is(err, scheduler.ErrClosed):
		return protocol.ErrUnavailable
	case errors.Is(err, context.Canceled):
		return protocol.ErrCancelled
	default:
		return protocol.ErrInternal
	}
}
