package world

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	diskHeaderSize = 9
)

type diskRecordMeta struct {
	offset int64
	keyLen uint32
	size   uint32
}

// DiskStore is an append-only record log of encoded chunks. Each record is
// a 9 byte header (op, key length, payload length) followed by the key and
// a zstd compressed gob payload. The in-memory index is rebuilt by replaying
// the log on open; later records win.
type DiskStore struct {
	codec *payloadCodec

	mu      sync.RWMutex
	file    *os.File
	records map[string]diskRecordMeta
}

func OpenDiskStore(path string, compressionLevel int) (*DiskStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open disk store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chunk file: %w", err)
	}
	codec, err := newPayloadCodec(compressionLevel)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &DiskStore{
		codec:   codec,
		file:    f,
		records: make(map[string]diskRecordMeta),
	}
	if err := s.loadIndex(); err != nil {
		codec.Close()
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) loadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind chunk file: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("truncated chunk header: %w", err)
			}
			return fmt.Errorf("read chunk header: %w", err)
		}
		op := header[0]
		keyLen := binary.LittleEndian.Uint32(header[1:5])
		size := binary.LittleEndian.Uint32(header[5:9])

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(s.file, key); err != nil {
			return fmt.Errorf("read chunk key: %w", err)
		}
		if _, err := s.file.Seek(int64(size), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload: %w", err)
		}

		recordOffset := offset
		offset += diskHeaderSize + int64(keyLen) + int64(size)
		if op == diskOpSet {
			s.records[string(key)] = diskRecordMeta{offset: recordOffset, keyLen: keyLen, size: size}
		} else {
			delete(s.records, string(key))
		}
	}
	return nil
}

func (s *DiskStore) Load(ctx context.Context, key Key) (*EncodedChunk, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return nil, false, ErrStoreClosed
	}
	meta, ok := s.records[key.String()]
	if !ok {
		return nil, false, nil
	}
	payload := make([]byte, meta.size)
	at := meta.offset + diskHeaderSize + int64(meta.keyLen)
	if _, err := s.file.ReadAt(payload, at); err != nil {
		return nil, false, fmt.Errorf("read payload at %d: %w", at, err)
	}
	chunk, err := s.codec.decodeGob(payload)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return chunk, true, nil
}

func (s *DiskStore) Save(ctx context.Context, key Key, chunk *EncodedChunk) error {
	payload, err := s.codec.encodeGob(chunk)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return s.append(diskOpSet, key.String(), payload)
}

func (s *DiskStore) Delete(ctx context.Context, key Key) error {
	return s.append(diskOpDelete, key.String(), nil)
}

func (s *DiskStore) append(op byte, key string, payload []byte) error {
	header := make([]byte, diskHeaderSize)
	header[0] = op
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(key)))
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(payload)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrStoreClosed
	}

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek chunk end: %w", err)
	}
	record := make([]byte, 0, len(header)+len(key)+len(payload))
	record = append(record, header...)
	record = append(record, key...)
	record = append(record, payload...)
	if _, err := s.file.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync chunk file: %w", err)
	}
	if op == diskOpSet {
		s.records[key] = diskRecordMeta{offset: offset, keyLen: uint32(len(key)), size: uint32(len(payload))}
	} else {
		delete(s.records, key)
	}
	return nil
}

// ForEach visits stored chunks in key order. Records that fail to load are
// logged and skipped.
func (s *DiskStore) ForEach(ctx context.Context, fn func(key Key, chunk *EncodedChunk) bool) error {
	s.mu.RLock()
	if s.file == nil {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, err := ParseKey(name)
		if err != nil {
			log.Printf("disk chunk store: %v", err)
			continue
		}
		chunk, ok, err := s.Load(ctx, key)
		if err != nil {
			if errors.Is(err, ErrStoreClosed) {
				return err
			}
			log.Printf("disk chunk store load %s: %v", name, err)
			continue
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

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.codec.Close()
	return err
}
