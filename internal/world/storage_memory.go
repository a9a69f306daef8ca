package world

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps encoded chunks in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[Key]*EncodedChunk
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[Key]*EncodedChunk)}
}

func (m *MemoryStore) Load(ctx context.Context, key Key) (*EncodedChunk, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrStoreClosed
	}
	chunk, ok := m.chunks[key]
	if !ok {
		return nil, false, nil
	}
	return cloneEncoded(chunk), true, nil
}

func (m *MemoryStore) Save(ctx context.Context, key Key, chunk *EncodedChunk) error {
	dup := cloneEncoded(chunk)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.chunks[key] = dup
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.chunks, key)
	return nil
}

// ForEach visits stored chunks in key order.
func (m *MemoryStore) ForEach(ctx context.Context, fn func(key Key, chunk *EncodedChunk) bool) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrStoreClosed
	}
	keys := make([]Key, 0, len(m.chunks))
	for key := range m.chunks {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, ok, err := m.Load(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !fn(key, chunk) {
			break
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.chunks = nil
	m.mu.Unlock()
	return nil
}
