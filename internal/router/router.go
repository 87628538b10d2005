// Package router chooses the downstream handler for a request: rule
// overrides first, then nearest class prototype by cosine similarity, then
// the model fallback.
package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
)

// Embedder is the part of the embedding provider the router needs.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Result, error)
}

// #region router
// Router classifies requests. It is safe for concurrent use; the prototype
// set can be swapped while requests are in flight.
type Router struct {
	config    Config
	extractor *Extractor
	embedder  Embedder // nil disables the embedding step
	protos    atomic.Pointer[PrototypeSet]
	rulesHash string
	logger    *slog.Logger
}

// New returns a Router. protos and embedder may be nil, in which case only
// rules and the fallback apply.
func New(config Config, embedder Embedder, protos *PrototypeSet, logger *slog.Logger) (*Router, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Router{
		config:    config,
		extractor: NewExtractor(config.Lexicons),
		embedder:  embedder,
		logger:    logger.With("component", "router"),
	}
	r.rulesHash = r.rulesDigest()
	if protos != nil {
		r.protos.Store(protos)
	}
	return r, nil
}

// Extractor returns the feature extractor built from the configured lexicons.
func (r *Router) Extractor() *Extractor { return r.extractor }

// Prototypes returns the active prototype set, or nil.
func (r *Router) Prototypes() *PrototypeSet { return r.protos.Load() }

// SetPrototypes swaps the active prototype set.
func (r *Router) SetPrototypes(set *PrototypeSet) {
	r.protos.Store(set)
}

// Version identifies rules, lexicons and prototypes together. It changes
// whenever any centroid changes.
func (r *Router) Version() string {
	pv := "none"
	if set := r.protos.Load(); set != nil {
		pv = set.Version
	}
	return "router-" + r.rulesHash + "/" + pv
}

func (r *Router) rulesDigest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%g|%g|", r.config.NERMinBigrams, r.config.RiskMinHits, r.config.MinConfidence, r.config.FallbackConfidence)
	lex := r.extractor.lex
	for _, list := range [][]string{lex.Risk, lex.Forensic, lex.Classification, lex.Interrogatives} {
		h.Write([]byte(strings.Join(list, "\x1f")))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// #endregion router

// #region classify
// Classify routes in.
func (r *Router) Classify(ctx context.Context, in Input) Result {
	features := r.extractor.Extract(in.Text)
	version := r.Version()

	if res, ok := applyRules(features, r.config); ok {
		res.CacheStatus = CacheSkipped
		res.RouterVersion = version
		res.Signals = features
		return res
	}

	res, matched := r.matchPrototypes(ctx, in)
	res.RouterVersion = version
	res.Signals = features
	if matched {
		return res
	}

	res.Confidence = r.config.FallbackConfidence
	if in.HasRetrieval {
		res.Decision = DecisionRAGLLM
		res.Reason = "fallback: no rule or confident prototype match, retrieval context available"
		res.Features = append(res.Features, "fallback", "retrieval_context")
	} else {
		res.Decision = DecisionLLM
		res.Reason = "fallback: no rule or confident prototype match"
		res.Features = append(res.Features, "fallback")
	}
	if res.Degraded {
		res.Reason += " (embedding unavailable)"
	}
	return res
}

// matchPrototypes returns a complete Result when the best prototype clears
// MinConfidence. Otherwise it returns the partial Result (scores, cache
// status, degraded flag) for the fallback to extend.
func (r *Router) matchPrototypes(ctx context.Context, in Input) (Result, bool) {
	res := Result{CacheStatus: CacheSkipped}
	set := r.protos.Load()
	if set == nil || r.embedder == nil {
		return res, false
	}

	text := in.EmbedText
	if text == "" {
		text = in.Text
	}
	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		r.logger.Warn("embedding failed, routing degraded", "err", err)
		res.Degraded = true
		return res, false
	}
	res.CacheStatus = CacheMiss
	if emb.CacheHit {
		res.CacheStatus = CacheHit
	}
	if len(emb.Vector) != set.Dim() {
		r.logger.Warn("embedding dimension differs from prototypes, routing degraded",
			"dim", len(emb.Vector), "prototype_dim", set.Dim())
		res.Degraded = true
		return res, false
	}

	q := unit(emb.Vector)
	if q == nil {
		return res, false
	}

	res.Scores = make(map[string]float64, len(set.Prototypes))
	best, bestScore := -1, math.Inf(-1)
	for i, p := range set.Prototypes {
		score := float64(vek32.Dot(q, p.Centroid))
		res.Scores[string(p.Class)] = score
		// Strict comparison keeps the earlier prototype on ties.
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore <= r.config.MinConfidence {
		return res, false
	}
	class := set.Prototypes[best].Class
	res.Decision = class
	res.Confidence = clamp01(bestScore)
	res.Reason = fmt.Sprintf("embedding: nearest prototype %s (cosine %.3f > %.2f)", class, bestScore, r.config.MinConfidence)
	res.Features = []string{"embedding_similarity"}
	return res, true
}

// #endregion classify

// unit returns an L2-normalized copy of v, or nil for the zero vector.
func unit(v []float32) []float32 {
	norm := math.Sqrt(float64(vek32.Dot(v, v)))
	if norm == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	vek32.MulNumber_Inplace(out, float32(1/norm))
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
