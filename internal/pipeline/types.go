// Package pipeline runs one request through pre-intelligence, routing and the
// selected handler, and returns its DecisionRecord.
package pipeline

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// ErrInvalidConfig is returned by New when a required dependency is missing.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// ErrNoBackend is the terminal error for a model-path decision when no
// backend is configured.
var ErrNoBackend = errors.New("no model backend configured")

// #region request
// Request is one upstream call.
type Request struct {
	ID              string `json:"id,omitempty"`
	Text            string `json:"text"`             // raw context to pre-process
	Prompt          string `json:"prompt,omitempty"` // question about Text; empty when Text is the request itself
	Hint            string `json:"hint,omitempty"`   // platform or context hint, logged only
	MaxContextChars int    `json:"max_context_chars,omitempty"`
}

// #endregion request

// #region deps
// Deps wires the pipeline. Segmenter, Pruner and Router are required; the
// rest are optional and skipped when nil.
type Deps struct {
	Segmenter   *segment.Segmenter
	Pruner      *prune.Engine
	Router      *router.Router
	Retriever   *retrieval.Retriever
	Guard       policy.Guard
	Backend     backend.Backend
	DecisionLog *sql.DB
	Retry       RetryPolicy
	Logger      *slog.Logger
	Now         func() time.Time
}

// #endregion deps
