// Package config loads the prerouter configuration: YAML defaults first,
// then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SKDesing/aura-osint/go-preintel/internal/backend"
	"github.com/SKDesing/aura-osint/go-preintel/internal/bench"
	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
	"github.com/SKDesing/aura-osint/go-preintel/internal/pipeline"
	"github.com/SKDesing/aura-osint/go-preintel/internal/policy"
	"github.com/SKDesing/aura-osint/go-preintel/internal/prune"
	"github.com/SKDesing/aura-osint/go-preintel/internal/retrieval"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// ErrInvalidConfig is wrapped by problems found outside the component
// sections; those keep their own sentinels.
var ErrInvalidConfig = errors.New("invalid config")

// #region types
// Config is the full process configuration.
type Config struct {
	Store       StoreConfig          `yaml:"store"`
	Codec       CodecConfig          `yaml:"codec"`
	Log         LogConfig            `yaml:"log"`
	Segment     segment.Config       `yaml:"segment"`
	Fingerprint FingerprintConfig    `yaml:"fingerprint"`
	Prune       prune.Config         `yaml:"prune"`
	Embedding   embedding.Config     `yaml:"embedding"`
	Router      router.Config        `yaml:"router"`
	Retrieval   retrieval.Config     `yaml:"retrieval"`
	Policy      policy.Config        `yaml:"policy"`
	Backend     backend.Config       `yaml:"backend"`
	Retry       pipeline.RetryPolicy `yaml:"retry"`
	Bench       bench.Config         `yaml:"bench"`
}

// StoreConfig locates the sqlite database holding the embedding cache and
// the decision log.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CodecConfig addresses the gRPC collaborator used by every remote mode.
type CodecConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// FingerprintConfig sets the fingerprint width shared by pruning and
// evidence dedup.
type FingerprintConfig struct {
	Bits int `yaml:"bits"`
}

// #endregion types

// #region defaults
// Default returns a configuration that runs fully offline: hashing
// embeddings, rules plus fallback routing, lexicon policy, no retrieval and
// no model backend.
func Default() Config {
	return Config{
		Store:       StoreConfig{Path: "preintel.db"},
		Codec:       CodecConfig{Addr: "localhost:50051"},
		Log:         LogConfig{Level: "info", Format: "text"},
		Segment:     segment.DefaultConfig(),
		Fingerprint: FingerprintConfig{Bits: fingerprint.DefaultBits},
		Prune:       prune.DefaultConfig(),
		Embedding:   embedding.DefaultConfig(),
		Router:      router.DefaultConfig(),
		Retrieval:   retrieval.DefaultConfig(),
		Policy:      policy.DefaultConfig(),
		Backend:     backend.DefaultConfig(),
		Retry:       pipeline.DefaultRetryPolicy(),
		Bench:       bench.DefaultConfig(),
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown keys so a misspelled section fails loudly.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays the environment. Secrets only ever come from here.
func (c *Config) applyEnv() {
	c.Store.Path = envOr("PREINTEL_DB", c.Store.Path)
	c.Codec.Addr = envOr("PREINTEL_CODEC_ADDR", c.Codec.Addr)
	c.Router.PrototypesPath = envOr("PREINTEL_PROTOTYPES", c.Router.PrototypesPath)
	c.Log.Level = envOr("PREINTEL_LOG_LEVEL", c.Log.Level)
	if c.Embedding.CodecAddr == "" {
		c.Embedding.CodecAddr = c.Codec.Addr
	}
	switch c.Backend.Provider {
	case "anthropic":
		c.Backend.APIKey = envOr("ANTHROPIC_API_KEY", c.Backend.APIKey)
	case "openai":
		c.Backend.APIKey = envOr("OPENAI_API_KEY", c.Backend.APIKey)
	}
}

// #endregion load

// #region validate
// Validate aggregates every section's problems.
func (c Config) Validate() error {
	errs := []error{
		c.Segment.Validate(),
		c.Prune.Validate(),
		c.Embedding.Validate(),
		c.Router.Validate(),
		c.Retrieval.Validate(),
		c.Policy.Validate(),
		c.Backend.Validate(),
		c.Retry.Validate(),
		c.Bench.Validate(),
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("%w: store.path is empty", ErrInvalidConfig))
	}
	if _, err := fingerprint.New(c.Fingerprint.Bits, nil); err != nil {
		errs = append(errs, fmt.Errorf("%w: fingerprint.bits: %w", ErrInvalidConfig, err))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format))
	}
	if c.NeedsCodec() && c.Codec.Addr == "" {
		errs = append(errs, fmt.Errorf("%w: codec.addr required by a remote mode", ErrInvalidConfig))
	}
	if p := c.Router.PrototypesPath; p != "" {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("%w: router.prototypes_path: %w", ErrInvalidConfig, err))
		}
	}
	if c.Retrieval.Source == "bleve" && c.Retrieval.CorpusDir != "" {
		if info, err := os.Stat(c.Retrieval.CorpusDir); err != nil {
			errs = append(errs, fmt.Errorf("%w: retrieval.corpus_dir: %w", ErrInvalidConfig, err))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("%w: retrieval.corpus_dir %s is not a directory", ErrInvalidConfig, c.Retrieval.CorpusDir))
		}
	}
	return errors.Join(errs...)
}

// NeedsCodec reports whether any collaborator talks to the codec service.
func (c Config) NeedsCodec() bool {
	return c.Retrieval.Source == "remote" || c.Policy.Mode == "remote" || c.Backend.Provider == "grpc"
}

// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
