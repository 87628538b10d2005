package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PREINTEL_DB", "PREINTEL_CODEC_ADDR", "PREINTEL_PROTOTYPES",
		"PREINTEL_LOG_LEVEL", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
	assert.Equal(t, "localhost:50051", cfg.Embedding.CodecAddr)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "preintel.yaml", `
store:
  path: /tmp/other.db
prune:
  max_context_chars: 900
embedding:
  timeout: 2s
retry:
  max_attempts: 5
  attempt_timeout: 1500ms
  backoff: 10ms
bench:
  min_accuracy: 0.9
  max_avg_latency: 20ms
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, 900, cfg.Prune.MaxContextChars)
	assert.Equal(t, 2*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Retry.AttemptTimeout)
	assert.Equal(t, 0.9, cfg.Bench.MinAccuracy)
	assert.Equal(t, 20*time.Millisecond, cfg.Bench.MaxAvgLatency)
	assert.Equal(t, "json", cfg.Log.Format)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Segment, cfg.Segment)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	protos := writeFile(t, "protos.yaml", "model_id: hashing:256\n")
	t.Setenv("PREINTEL_DB", "/var/lib/preintel.db")
	t.Setenv("PREINTEL_CODEC_ADDR", "codec:6000")
	t.Setenv("PREINTEL_PROTOTYPES", protos)
	t.Setenv("PREINTEL_LOG_LEVEL", "warn")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	path := writeFile(t, "preintel.yaml", `
store:
  path: ignored.db
backend:
  provider: anthropic
  model: claude-sonnet-4-5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/preintel.db", cfg.Store.Path)
	assert.Equal(t, "codec:6000", cfg.Codec.Addr)
	assert.Equal(t, "codec:6000", cfg.Embedding.CodecAddr)
	assert.Equal(t, protos, cfg.Router.PrototypesPath)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	path := writeFile(t, "preintel.yaml", "backend:\n  provider: openai\n  model: gpt-4.1-mini\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-oai", cfg.Backend.APIKey)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "preintel.yaml", "prune:\n  max_context_charz: 10\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_context_charz")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	cfg.Fingerprint.Bits = 3
	cfg.Log.Level = "loud"
	cfg.Router.PrototypesPath = filepath.Join(t.TempDir(), "missing.yaml")
	cfg.Backend.Provider = "anthropic"
	cfg.Retrieval.Source = "bleve"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, backend.ErrInvalidConfig)
	assert.ErrorIs(t, err, retrieval.ErrInvalidConfig)
	for _, want := range []string{"store.path", "fingerprint.bits", "log.level", "prototypes_path"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRemoteNeedsCodec(t *testing.T) {
	cfg := Default()
	cfg.Codec.Addr = ""
	cfg.Policy.Mode = "remote"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Policy.Mode = "lexicon"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCorpusDir(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.Source = "bleve"
	cfg.Retrieval.CorpusDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	cfg.Retrieval.CorpusDir = writeFile(t, "not-a-dir.md", "x")
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestRouterLexiconsFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "preintel.yaml", "router:\n  risk_min_hits: 2\n  lexicons:\n    risk: [menace]\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Router.RiskMinHits)
	assert.Equal(t, []string{"menace"}, cfg.Router.Lexicons.Risk)
	assert.Equal(t, router.DefaultConfig().NERMinBigrams, cfg.Router.NERMinBigrams)
}
