package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, emb Embedder, set *PrototypeSet) *Router {
	t.Helper()
	r, err := New(DefaultConfig(), emb, set, nil)
	require.NoError(t, err)
	return r
}

func TestRulePriority(t *testing.T) {
	r := newRouter(t, nil, nil)
	tests := []struct {
		name string
		text string
		want Decision
	}{
		{"ner", "Meeting between John Smith and Maria Garcia in the office", DecisionNER},
		{"harassment", "he keeps sending threats to my account every night", DecisionHarassment},
		{"harassment-fr", "je subis du harcèlement depuis des semaines", DecisionHarassment},
		{"forensic", "build a timeline of the login events from 2024-03-01 10:42", DecisionForensic},
		{"forensic-needs-timestamp", "build a timeline of the login events", DecisionLLM},
		{"classification", "please classify this message for me", DecisionClassification},
		{"ner-beats-harassment", "Jean Dupont sent threats to Marie Curie", DecisionNER},
		{"harassment-beats-forensic", "timeline of the threats received at 10:42", DecisionHarassment},
		{"fallback", "tell me something interesting", DecisionLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Classify(context.Background(), Input{Text: tt.text})
			assert.Equal(t, tt.want, res.Decision, res.Reason)
			assert.NotEmpty(t, res.Reason)
			assert.NotEmpty(t, res.Features)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestRuleConfidences(t *testing.T) {
	r := newRouter(t, nil, nil)
	ctx := context.Background()

	assert.Equal(t, 0.90, r.Classify(ctx, Input{Text: "John Smith met Maria Garcia"}).Confidence)
	assert.Equal(t, 0.92, r.Classify(ctx, Input{Text: "stop the harassment"}).Confidence)
	assert.Equal(t, 0.88, r.Classify(ctx, Input{Text: "incident log at 23:10"}).Confidence)
	assert.Equal(t, 0.85, r.Classify(ctx, Input{Text: "which category fits"}).Confidence)
}

func TestRiskTermWinsOverEmbedding(t *testing.T) {
	text := "they posted threats under every photo"
	// The embedding points straight at the classification prototype.
	emb := &fixedEmbedder{vectors: map[string][]float32{text: basis(4, 3)}}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: text})
	assert.Equal(t, DecisionHarassment, res.Decision)
	assert.Equal(t, CacheSkipped, res.CacheStatus)
	assert.Zero(t, emb.calls, "rules must short-circuit before embedding")
}

func TestEmbeddingMatch(t *testing.T) {
	text := "quelque chose sans indice lexical"
	emb := &fixedEmbedder{vectors: map[string][]float32{text: {0.1, 0.9, 0.1, 0}}, hit: true}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: text})
	assert.Equal(t, DecisionForensic, res.Decision)
	assert.Equal(t, CacheHit, res.CacheStatus)
	assert.Greater(t, res.Confidence, 0.55)
	assert.Equal(t, []string{"embedding_similarity"}, res.Features)
	assert.Len(t, res.Scores, 4)
	assert.False(t, res.Degraded)
}

func TestEmbeddingUsesEmbedText(t *testing.T) {
	emb := &fixedEmbedder{vectors: map[string][]float32{"assembled context": basis(4, 0)}}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: "plain words only", EmbedText: "assembled context"})
	assert.Equal(t, DecisionNER, res.Decision)
}

func TestEmbeddingBelowFloorFallsBack(t *testing.T) {
	// Equal weight on all four axes gives cosine 0.5 with each prototype.
	emb := &fixedEmbedder{def: []float32{1, 1, 1, 1}}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: "nothing to see"})
	assert.Equal(t, DecisionLLM, res.Decision)
	assert.Equal(t, 0.30, res.Confidence)
	assert.Equal(t, CacheMiss, res.CacheStatus)
	assert.False(t, res.Degraded)

	res = r.Classify(context.Background(), Input{Text: "nothing to see", HasRetrieval: true})
	assert.Equal(t, DecisionRAGLLM, res.Decision)
	assert.Contains(t, res.Features, "retrieval_context")
}

func TestTieKeepsEarlierPrototype(t *testing.T) {
	emb := &fixedEmbedder{def: []float32{1, 1, 0, 0}}
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.5
	r, err := New(cfg, emb, testPrototypes(), nil)
	require.NoError(t, err)

	res := r.Classify(context.Background(), Input{Text: "tie"})
	assert.Equal(t, DecisionNER, res.Decision)
}

func TestEmbeddingFailureDegrades(t *testing.T) {
	emb := &fixedEmbedder{err: errors.New("model offline")}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: "some request"})
	assert.Equal(t, DecisionLLM, res.Decision)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Reason, "embedding unavailable")
}

func TestDimensionMismatchDegrades(t *testing.T) {
	emb := &fixedEmbedder{def: []float32{1, 0}}
	r := newRouter(t, emb, testPrototypes())

	res := r.Classify(context.Background(), Input{Text: "some request"})
	assert.True(t, res.Degraded)
	assert.Equal(t, DecisionLLM, res.Decision)
}

func TestNoPrototypesSkipsEmbedding(t *testing.T) {
	emb := &fixedEmbedder{def: basis(4, 0)}
	r := newRouter(t, emb, nil)

	res := r.Classify(context.Background(), Input{Text: "some request"})
	assert.Equal(t, DecisionLLM, res.Decision)
	assert.Equal(t, CacheSkipped, res.CacheStatus)
	assert.False(t, res.Degraded)
	assert.Zero(t, emb.calls)
}

func TestVersionTracksPrototypes(t *testing.T) {
	r := newRouter(t, nil, testPrototypes())
	v1 := r.Version()

	changed := testPrototypes().Prototypes
	changed[0].Centroid = []float32{0.9, 0.1, 0, 0}
	set, err := NewPrototypeSet("test-model", changed)
	require.NoError(t, err)
	r.SetPrototypes(set)

	assert.NotEqual(t, v1, r.Version())
	assert.Equal(t, r.Version(), r.Classify(context.Background(), Input{Text: "x"}).RouterVersion)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinConfidence = 1.5
	cfg.RiskMinHits = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
