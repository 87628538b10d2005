// Package store owns the sqlite database shared by the embedding cache and
// the decision log.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
	cache_key   TEXT PRIMARY KEY,
	model_id    TEXT NOT NULL,
	dim         INTEGER NOT NULL,
	vector      BLOB NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id      TEXT NOT NULL,
	decision        TEXT NOT NULL,
	status          TEXT NOT NULL,
	trace_hash      TEXT,
	router_version  TEXT,
	policy_version  TEXT,
	record_json     TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_created ON decision_log(created_at);
`
// #endregion schema

// #region store-struct
// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// Open opens (or creates) a sqlite database at path and runs migrations.
// ":memory:" gives a private in-process database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite serializes writers; one connection also keeps :memory: databases
	// from splitting across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region embeddings
// GetEmbedding reads the entry for key. A missing row returns ok=false and a
// nil error. A row that fails validation returns an error wrapping
// ErrCorruptEntry.
func (s *Store) GetEmbedding(ctx context.Context, key string) (EmbeddingEntry, bool, error) {
	var (
		entry     EmbeddingEntry
		blob      []byte
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, model_id, dim, vector, created_at FROM embedding_cache WHERE cache_key = ?`, key,
	).Scan(&entry.CacheKey, &entry.ModelID, &entry.Dim, &blob, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EmbeddingEntry{}, false, nil
	}
	if err != nil {
		return EmbeddingEntry{}, false, fmt.Errorf("get embedding: %w", err)
	}

	vec, err := decodeVector(blob, entry.Dim)
	if err != nil {
		return EmbeddingEntry{}, false, fmt.Errorf("get embedding %s: %w", key, err)
	}
	entry.Vector = vec
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return entry, true, nil
}

// PutEmbedding writes entry inside a transaction, replacing any existing row
// for the same key. Entries are content-addressed, so the last writer wins.
func (s *Store) PutEmbedding(ctx context.Context, entry EmbeddingEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Dim == 0 {
		entry.Dim = len(entry.Vector)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO embedding_cache (cache_key, model_id, dim, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   model_id = excluded.model_id,
		   dim = excluded.dim,
		   vector = excluded.vector,
		   created_at = excluded.created_at`,
		entry.CacheKey, entry.ModelID, entry.Dim, encodeVector(entry.Vector),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ClearEmbeddings deletes every cached embedding and returns the row count.
func (s *Store) ClearEmbeddings(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache`)
	if err != nil {
		return 0, fmt.Errorf("clear embeddings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountEmbeddings returns the number of cached embeddings.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}
// #endregion embeddings

// #region vector-codec
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: blob length %d", ErrCorruptEntry, len(b))
	}
	if len(b)/4 != dim {
		return nil, fmt.Errorf("%w: blob holds %d values, dim is %d", ErrCorruptEntry, len(b)/4, dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("%w: non-finite value at %d", ErrCorruptEntry, i)
		}
		vec[i] = f
	}
	return vec, nil
}
// #endregion vector-codec
