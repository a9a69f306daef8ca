// Package protocol defines the messages exchanged with generation clients.
package protocol

import (
	"encoding/json"
	"time"

	"voxelgen/internal/mesh"
	"voxelgen/internal/world"
)

type MessageType string

const (
	MessageHello    MessageType = "hello"
	MessageGenerate MessageType = "generate"
	MessageCancel   MessageType = "cancel"
	MessageAccepted MessageType = "accepted"
	MessageChunk    MessageType = "chunk"
	MessageError    MessageType = "error"
)

const (
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrUnknownGenerator = "E_UNKNOWN_GENERATOR"
	ErrQueueFull        = "E_QUEUE_FULL"
	ErrCancelled        = "E_CANCELLED"
	ErrUnknownTicket    = "E_UNKNOWN_TICKET"
	ErrUnavailable      = "E_UNAVAILABLE"
	ErrInternal         = "E_INTERNAL"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// Hello is sent by the server right after the connection is accepted.
type Hello struct {
	ServerID      string     `json:"serverId"`
	Generators    []string   `json:"generators"`
	ChunkSize     world.Size `json:"chunkSize"`
	FormatVersion int        `json:"formatVersion"`
}

// Generate asks for one chunk. Ref is an opaque client reference echoed in
// the replies.
type Generate struct {
	Ref          string  `json:"ref,omitempty"`
	X            int     `json:"x"`
	Z            int     `json:"z"`
	Seed         string  `json:"seed"`
	Generator    string  `json:"generatorType"`
	Priority     int     `json:"priority,omitempty"`
	Mesh         bool    `json:"mesh,omitempty"`
	SkipAxes     [3]bool `json:"skipAxes"`
	PaletteIndex bool    `json:"paletteIndex,omitempty"`
}

type Cancel struct {
	Ticket string `json:"ticket"`
}

type Accepted struct {
	Ref    string `json:"ref,omitempty"`
	Ticket string `json:"ticket"`
}

type Chunk struct {
	Ref      string              `json:"ref,omitempty"`
	Ticket   string              `json:"ticket"`
	Key      string              `json:"key"`
	Cached   bool                `json:"cached"`
	Chunk    *world.EncodedChunk `json:"chunk"`
	Geometry *mesh.Geometry      `json:"geometry,omitempty"`
}

type Error struct {
	Ref     string `json:"ref,omitempty"`
	Ticket  string `json:"ticket,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(msgType MessageType, seq uint64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       seq,
		Payload:   raw,
	}, nil
}
