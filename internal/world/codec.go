package world

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// payloadCodec compresses serialized chunks with zstd. EncodeAll and
// DecodeAll are safe for concurrent use, so one codec serves a whole store.
type payloadCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newPayloadCodec(level int) (*payloadCodec, error) {
	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevel(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &payloadCodec{enc: enc, dec: dec}, nil
}

func (c *payloadCodec) encodeJSON(chunk *EncodedChunk) ([]byte, error) {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	return c.enc.EncodeAll(raw, nil), nil
}

func (c *payloadCodec) decodeJSON(payload []byte) (*EncodedChunk, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress chunk: %w", err)
	}
	var chunk EncodedChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	return &chunk, nil
}

func (c *payloadCodec) encodeGob(chunk *EncodedChunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(chunk); err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	return c.enc.EncodeAll(buf.Bytes(), nil), nil
}

func (c *payloadCodec) decodeGob(payload []byte) (*EncodedChunk, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress chunk: %w", err)
	}
	var chunk EncodedChunk
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	return &chunk, nil
}

func (c *payloadCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}
