package store

import (
	"errors"
	"time"
)

// ErrCorruptEntry marks a stored embedding that cannot be decoded into a
// usable vector. Callers treat it as a cache miss.
var ErrCorruptEntry = errors.New("corrupt embedding entry")

// #region embedding-entry
// EmbeddingEntry is a single row in the embedding_cache table.
type EmbeddingEntry struct {
	CacheKey  string
	ModelID   string
	Dim       int
	Vector    []float32
	CreatedAt time.Time
}

// #endregion embedding-entry
