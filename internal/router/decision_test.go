package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDecision(t *testing.T) {
	for _, d := range Decisions {
		got, err := ParseDecision(string(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	for _, bad := range []string{"", "LLM", "rag", "spam", "rag+llm "} {
		_, err := ParseDecision(bad)
		assert.ErrorIs(t, err, ErrInvalidDecision, bad)
	}
}

func TestDecisionJSON(t *testing.T) {
	var v struct {
		D Decision `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"rag+llm"}`), &v))
	assert.Equal(t, DecisionRAGLLM, v.D)

	err := json.Unmarshal([]byte(`{"d":"summarize"}`), &v)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	out, err := json.Marshal(struct {
		D Decision `json:"d"`
	}{DecisionForensic})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"forensic"}`, string(out))
}

func TestDecisionYAML(t *testing.T) {
	var v struct {
		D Decision `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: ner\n"), &v))
	assert.Equal(t, DecisionNER, v.D)
	assert.ErrorIs(t, yaml.Unmarshal([]byte("d: other\n"), &v), ErrInvalidDecision)
}

func TestBypass(t *testing.T) {
	assert.True(t, DecisionNER.IsBypass())
	assert.True(t, DecisionClassification.IsBypass())
	assert.False(t, DecisionLLM.IsBypass())
	assert.False(t, DecisionRAGLLM.IsBypass())
	assert.False(t, Decision("bogus").IsBypass())

	assert.Equal(t, 0.0, BypassRate(nil))
	assert.Equal(t, 0.0, BypassRate([]Decision{DecisionLLM, DecisionRAGLLM}))
	assert.Equal(t, 0.5, BypassRate([]Decision{DecisionLLM, DecisionNER, DecisionForensic, DecisionRAGLLM}))
	assert.Equal(t, 1.0, BypassRate([]Decision{DecisionHarassment}))
}
