// Package contract builds the auditable record returned for every request.
package contract

import (
	"errors"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// SchemaVersion is bumped on any breaking change to DecisionRecord. Fields
// are only ever added.
const SchemaVersion = "1.0"

// ErrIncompleteRecord is wrapped when Build is given inputs that cannot
// produce a full record.
var ErrIncompleteRecord = errors.New("incomplete decision record")

// #region status
// Status is the terminal state of a request.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusDegraded Status = "degraded"
)

// #endregion status

// #region record
// DecisionRecord is the complete, externally visible output of one run.
// It is immutable once built.
type DecisionRecord struct {
	SchemaVersion string         `json:"schema_version"`
	RequestID     string         `json:"request_id"`
	Status        Status         `json:"status"`
	Model         ModelInfo      `json:"model"`
	Routing       Routing        `json:"routing"`
	Retrieval     *RetrievalInfo `json:"retrieval,omitempty"`
	PreIntel      PreIntel       `json:"pre_intel"`
	Tokens        Tokens         `json:"tokens"`
	Output        Output         `json:"output"`
	Error         string         `json:"error,omitempty"`
	Policy        Policy         `json:"policy"`
	TraceHash     string         `json:"trace_hash"`
	LatencyMs     float64        `json:"latency_ms"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ModelInfo struct {
	Alias string `json:"alias"`
	Base  string `json:"base"`
	Hash  string `json:"hash"`
}

type Routing struct {
	Decision      router.Decision `json:"decision,omitempty"` // absent only on error records
	Confidence    float64         `json:"confidence"`
	Reason        string          `json:"reason"`
	Features      []string        `json:"features"`
	RouterVersion string          `json:"router_version"`
}

type RetrievalInfo struct {
	Used        bool   `json:"used"`
	Hits        int    `json:"hits"`
	ContextHash string `json:"context_hash"`
}

type PreIntel struct {
	Language  string             `json:"language"`
	Prune     prune.Stats        `json:"prune"`
	Cache     router.CacheStatus `json:"cache"`
	Segments  int                `json:"segments"`
	Truncated bool               `json:"truncated"`
}

type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Saved  int `json:"saved"`
}

type Output struct {
	Text string         `json:"text"`
	Data map[string]any `json:"data,omitempty"`
}

type Policy struct {
	Blocked        bool     `json:"blocked"`
	RulesTriggered []string `json:"rules_triggered"`
	Version        string   `json:"version"`
}

// #endregion record
