package world

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps encoded chunks in a sqlite table as zstd compressed JSON.
type SQLiteStore struct {
	db     *sql.DB
	codec  *payloadCodec
	closed atomic.Bool
}

func OpenSQLiteStore(path string, compressionLevel int) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite store: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initChunkPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initChunkSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	codec, err := newPayloadCodec(compressionLevel)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, codec: codec}, nil
}

func initChunkPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func initChunkSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			key TEXT PRIMARY KEY,
			generator TEXT NOT NULL,
			seed TEXT NOT NULL,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			format_version INTEGER NOT NULL,
			voxels INTEGER NOT NULL,
			payload BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS chunks_by_coord ON chunks(generator, seed, x, z);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init chunk schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key Key) (*EncodedChunk, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM chunks WHERE key = ?`, key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	chunk, err := s.codec.decodeJSON(payload)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return chunk, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key Key, chunk *EncodedChunk) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	payload, err := s.codec.encodeJSON(chunk)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO chunks(key, generator, seed, x, z, format_version, voxels, payload, saved_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, voxels = excluded.voxels, saved_at = excluded.saved_at`,
		key.String(), key.Generator, key.Seed, key.Coord.X, key.Coord.Z, key.FormatVersion,
		chunk.Len(), payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ForEach visits stored chunks in key order.
func (s *SQLiteStore) ForEach(ctx context.Context, fn func(key Key, chunk *EncodedChunk) bool) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT generator, seed, x, z, format_version, payload FROM chunks ORDER BY key`)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	type row struct {
		key     Key
		payload []byte
	}
	// The single connection is held by rows until they are closed, so
	// collect first and decode afterwards.
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key.Generator, &r.key.Seed, &r.key.Coord.X, &r.key.Coord.Z, &r.key.FormatVersion, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan chunk: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("list chunks: %w", err)
	}
	rows.Close()

	for _, r := range all {
		chunk, err := s.codec.decodeJSON(r.payload)
		if err != nil {
			return fmt.Errorf("load %s: %w", r.key, err)
		}
		if !fn(r.key, chunk) {
			break
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.codec.Close()
	return s.db.Close()
}
