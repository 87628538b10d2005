package contract

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// #region inputs
// Inputs collects the outputs of every stage for one request.
type Inputs struct {
	RequestID      string
	NormalizedText string
	Segments       int
	Truncated      bool
	Prune          prune.Stats
	Route          router.Result
	Retrieval      *retrieval.GateResult // nil when retrieval did not run
	Policy         policy.Verdict
	Model          backend.Model
	OutputText     string
	OutputData     map[string]any
	InputTokens    int
	OutputTokens   int
	Latency        time.Duration
}

// #endregion inputs

// #region builder
// Builder assembles DecisionRecords.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder stamping records with now (time.Now when nil).
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build validates in and returns the full record. It never returns a
// partially filled record: on error the record is zero.
func (b *Builder) Build(in Inputs) (DecisionRecord, error) {
	if err := validate(in); err != nil {
		return DecisionRecord{}, err
	}

	rec := DecisionRecord{
		SchemaVersion: SchemaVersion,
		RequestID:     in.RequestID,
		Status:        statusFor(in.Route, in.Policy),
		Model:         ModelInfo(in.Model),
		Routing: Routing{
			Decision:      in.Route.Decision,
			Confidence:    in.Route.Confidence,
			Reason:        in.Route.Reason,
			Features:      nonNil(in.Route.Features),
			RouterVersion: in.Route.RouterVersion,
		},
		PreIntel: PreIntel{
			Language:  in.Route.Signals.Language,
			Prune:     in.Prune,
			Cache:     in.Route.CacheStatus,
			Segments:  in.Segments,
			Truncated: in.Truncated,
		},
		Tokens: Tokens{
			Input:  in.InputTokens,
			Output: in.OutputTokens,
			Saved:  in.Prune.EstTokensSaved,
		},
		Output: Output{Text: in.OutputText, Data: in.OutputData},
		Policy: Policy{
			Blocked:        in.Policy.Blocked,
			RulesTriggered: nonNil(in.Policy.RulesTriggered),
			Version:        in.Policy.Version,
		},
		LatencyMs: ms(in.Latency),
		CreatedAt: b.now().UTC(),
	}

	var retrievalHash string
	if in.Retrieval != nil && in.Retrieval.Used() {
		rec.Retrieval = &RetrievalInfo{
			Used:        in.Retrieval.Used(),
			Hits:        len(in.Retrieval.Retrieved),
			ContextHash: in.Retrieval.ContextHash,
		}
		retrievalHash = in.Retrieval.ContextHash
	}
	rec.TraceHash = TraceHash(in.NormalizedText, in.Route.Decision, retrievalHash, in.Policy.Version)

	return rec, nil
}

// ErrorRecord returns a well-formed status=error record. Every optional
// field is zero.
func (b *Builder) ErrorRecord(requestID string, err error, latency time.Duration) DecisionRecord {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return DecisionRecord{
		SchemaVersion: SchemaVersion,
		RequestID:     requestID,
		Status:        StatusError,
		Routing:       Routing{Features: []string{}},
		Policy:        Policy{RulesTriggered: []string{}},
		Error:         msg,
		LatencyMs:     ms(latency),
		CreatedAt:     b.now().UTC(),
	}
}

// #endregion builder

// #region trace-hash
// TraceHash binds a decision to its causal inputs: SHA-256 over the
// normalized text, decision, retrieval context hash ("" when absent) and
// policy version, in that order, each prefixed with its byte length.
func TraceHash(normalizedText string, decision router.Decision, retrievalHash, policyVersion string) string {
	h := sha256.New()
	var n [8]byte
	for _, field := range []string{normalizedText, string(decision), retrievalHash, policyVersion} {
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion trace-hash

// #region stats
// BypassRate is the fraction of routed records whose decision avoided a full
// model call. Error records carry no decision and are not counted.
func BypassRate(records []DecisionRecord) float64 {
	routed := 0
	bypassed := 0
	for _, r := range records {
		if !r.Routing.Decision.Valid() {
			continue
		}
		routed++
		if r.Routing.Decision.IsBypass() {
			bypassed++
		}
	}
	if routed == 0 {
		return 0
	}
	return float64(bypassed) / float64(routed)
}

// #endregion stats

// #region helpers
func validate(in Inputs) error {
	switch {
	case in.RequestID == "":
		return fmt.Errorf("%w: missing request id", ErrIncompleteRecord)
	case !in.Route.Decision.Valid():
		return fmt.Errorf("%w: decision %q", ErrIncompleteRecord, in.Route.Decision)
	case math.IsNaN(in.Route.Confidence) || in.Route.Confidence < 0 || in.Route.Confidence > 1:
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrIncompleteRecord, in.Route.Confidence)
	case in.InputTokens < 0 || in.OutputTokens < 0 || in.Latency < 0:
		return fmt.Errorf("%w: negative token count or latency", ErrIncompleteRecord)
	}
	return nil
}

// A blocked request never reaches the model, so a degraded route does not
// degrade it.
func statusFor(route router.Result, verdict policy.Verdict) Status {
	if verdict.Blocked {
		return StatusOK
	}
	if route.Decision.IsModelPath() && route.Degraded {
		return StatusDegraded
	}
	return StatusOK
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// #endregion helpers
