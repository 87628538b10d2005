package bench

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

const mixedDataset = `# routing smoke set
{"prompt": "he keeps sending threats to my account every night", "expected_decision": "harassment", "expected_confidence": 0.9}
{"prompt": "build a timeline of the login events from 2024-03-01 10:42", "expected_decision": "forensic"}

{"prompt": "classify this message as spam or not", "expected_decision": "classification"}
{"prompt": "write a short poem about the sea", "expected_decision": "llm"}
`

const llmOnlyDataset = `{"prompt": "write a short poem about the sea", "expected_decision": "llm"}
{"prompt": "explain how tides work to a child", "expected_decision": "llm"}
{"prompt": "suggest three names for a bakery", "expected_decision": "llm"}
`

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func rulesRouter(t *testing.T) *router.Router {
	t.Helper()
	r, err := router.New(router.DefaultConfig(), nil, nil, nil)
	require.NoError(t, err)
	return r
}

func runDataset(t *testing.T, data string, cfg Config) Report {
	t.Helper()
	samples, err := ReadDataset(strings.NewReader(data))
	require.NoError(t, err)
	h := NewHarness(rulesRouter(t), stepClock(time.Millisecond))
	outcomes, err := h.Run(context.Background(), samples)
	require.NoError(t, err)
	return Summarize(outcomes, cfg, h.Version())
}

func TestReadDataset(t *testing.T) {
	samples, err := ReadDataset(strings.NewReader(mixedDataset))
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, router.DecisionHarassment, samples[0].ExpectedDecision)
	require.NotNil(t, samples[0].ExpectedConfidence)
	assert.InDelta(t, 0.9, *samples[0].ExpectedConfidence, 1e-9)
	assert.Equal(t, 2, samples[0].Line)
	assert.Nil(t, samples[1].ExpectedConfidence)
	assert.Equal(t, 5, samples[2].Line)
}

func TestReadDatasetRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown decision", `{"prompt": "x", "expected_decision": "summarize"}`},
		{"missing decision", `{"prompt": "x"}`},
		{"empty prompt", `{"prompt": "  ", "expected_decision": "llm"}`},
		{"confidence range", `{"prompt": "x", "expected_decision": "llm", "expected_confidence": 1.5}`},
		{"malformed", `{"prompt": `},
		{"empty", "\n# nothing here\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(mixedDataset), 0o644))

	samples, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Len(t, samples, 4)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestHarnessMixedDatasetPasses(t *testing.T) {
	rep := runDataset(t, mixedDataset, DefaultConfig())

	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 4, rep.Correct)
	assert.InDelta(t, 1.0, rep.Accuracy, 1e-9)
	assert.InDelta(t, 0.75, rep.BypassRate, 1e-9)
	assert.InDelta(t, 1.0, rep.Latency.Avg, 1e-9)
	assert.InDelta(t, 1.0, rep.Latency.Max, 1e-9)
	assert.Equal(t, 1, rep.Confusion["llm"]["llm"])
	assert.True(t, rep.Passed, rep.Reason)
	assert.Equal(t, "all gates passed", rep.Reason)
	assert.NotEmpty(t, rep.RouterVersion)
	require.Len(t, rep.Gates, 3)
}

func TestHarnessLLMOnlyFailsBypassGate(t *testing.T) {
	rep := runDataset(t, llmOnlyDataset, DefaultConfig())

	assert.InDelta(t, 0.0, rep.BypassRate, 1e-9)
	assert.InDelta(t, 1.0, rep.Accuracy, 1e-9)
	assert.False(t, rep.Passed)
	for _, g := range rep.Gates {
		switch g.Name {
		case "bypass_rate":
			assert.False(t, g.Pass)
		default:
			assert.True(t, g.Pass, g.Name)
		}
	}
	assert.Contains(t, rep.Reason, "bypass rate")
}

func TestHarnessLatencyGate(t *testing.T) {
	samples, err := ReadDataset(strings.NewReader(mixedDataset))
	require.NoError(t, err)
	h := NewHarness(rulesRouter(t), stepClock(80*time.Millisecond))
	outcomes, err := h.Run(context.Background(), samples)
	require.NoError(t, err)

	rep := Summarize(outcomes, DefaultConfig(), h.Version())
	assert.False(t, rep.Passed)
	assert.InDelta(t, 80.0, rep.Latency.Avg, 1e-9)
	assert.Contains(t, rep.Reason, "average latency")
}

func TestHarnessConfidenceAgreementIsInformational(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceDelta = 0.01
	rep := runDataset(t, `{"prompt": "he keeps sending threats to my account every night", "expected_decision": "harassment", "expected_confidence": 0.1}
{"prompt": "classify this message as spam or not", "expected_decision": "classification"}
`, cfg)

	require.Len(t, rep.Gates, 4)
	last := rep.Gates[3]
	assert.Equal(t, "confidence_agreement", last.Name)
	assert.False(t, last.Pass)
	assert.True(t, rep.Passed, rep.Reason)
}

func TestHarnessStopsOnCancel(t *testing.T) {
	samples, err := ReadDataset(strings.NewReader(mixedDataset))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := NewHarness(rulesRouter(t), nil).Run(ctx, samples)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
}

func TestSummarizeEmpty(t *testing.T) {
	rep := Summarize(nil, DefaultConfig(), "v")
	assert.Equal(t, 0, rep.Total)
	assert.False(t, rep.Passed)
}

func TestPercentiles(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[99-i] = float64(i + 1)
	}
	lat := summarizeLatency(values)
	assert.InDelta(t, 50.5, lat.Avg, 1e-9)
	assert.Equal(t, 50.0, lat.P50)
	assert.Equal(t, 95.0, lat.P95)
	assert.Equal(t, 99.0, lat.P99)
	assert.Equal(t, 100.0, lat.Max)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinAccuracy = 2
	cfg.MaxAvgLatency = 0
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "min_accuracy")
	assert.Contains(t, err.Error(), "max_avg_latency")
}

func hashingProvider(t *testing.T) *embedding.Provider {
	t.Helper()
	cfg := embedding.DefaultConfig()
	cfg.Dimension = 64
	p, err := embedding.NewProvider(cfg, func(context.Context) (embedding.Model, error) {
		return embedding.NewHashingModel(64), nil
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestBuildPrototypes(t *testing.T) {
	samples := []Sample{
		{Prompt: "he keeps sending threats every night", ExpectedDecision: router.DecisionHarassment},
		{Prompt: "someone is stalking my profile", ExpectedDecision: router.DecisionHarassment},
		{Prompt: "list the people named in this article", ExpectedDecision: router.DecisionNER},
		{Prompt: "write a short poem about the sea", ExpectedDecision: router.DecisionLLM},
	}
	p := hashingProvider(t)

	set, err := BuildPrototypes(context.Background(), p, samples)
	require.NoError(t, err)
	assert.Equal(t, p.ModelID(), set.ModelID)
	require.Len(t, set.Prototypes, 2)
	assert.Equal(t, router.DecisionHarassment, set.Prototypes[0].Class)
	assert.Equal(t, 2, set.Prototypes[0].Samples)
	assert.Equal(t, router.DecisionNER, set.Prototypes[1].Class)
	assert.Equal(t, 64, set.Dim())
	assert.NotEmpty(t, set.Version)
}

func TestBuildPrototypesNeedsBypassSamples(t *testing.T) {
	samples := []Sample{{Prompt: "write a poem", ExpectedDecision: router.DecisionLLM}}
	_, err := BuildPrototypes(context.Background(), hashingProvider(t), samples)
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

type ragged struct{}

func (ragged) ModelID() string { return "ragged" }

func (ragged) EmbedBatch(_ context.Context, texts []string) ([]embedding.Result, error) {
	out := make([]embedding.Result, len(texts))
	for i := range texts {
		out[i] = embedding.Result{Vector: make([]float32, 4+i)}
		out[i].Vector[0] = 1
	}
	return out, nil
}

func TestBuildPrototypesWidthMismatch(t *testing.T) {
	samples := []Sample{
		{Prompt: "a threat", ExpectedDecision: router.DecisionHarassment},
		{Prompt: "another threat", ExpectedDecision: router.DecisionHarassment},
	}
	_, err := BuildPrototypes(context.Background(), ragged{}, samples)
	assert.ErrorIs(t, err, embedding.ErrInvalidVector)
}
