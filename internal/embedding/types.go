package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProbeText is embedded by HealthCheck.
const ProbeText = "pre-intel health probe"

// ErrInvalidVector is returned when a model produces an empty or non-finite
// vector, or one whose width differs from the model's dimension.
var ErrInvalidVector = errors.New("invalid embedding vector")

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid embedding config")

// #region model
// Model turns text into a vector. Implementations must be safe for
// concurrent use.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension reports the output width, or 0 while unknown.
	Dimension() int
}

// Loader creates the model. The provider calls it lazily, at most once per
// successful initialization.
type Loader func(ctx context.Context) (Model, error)

// #endregion model

// #region config
// Config controls the provider and selects the model.
type Config struct {
	Model       string        `yaml:"model" json:"model"` // hashing | remote | onnx
	ModelID     string        `yaml:"model_id" json:"model_id"`
	Dimension   int           `yaml:"dimension" json:"dimension"` // hashing model width
	MaxInFlight int           `yaml:"max_in_flight" json:"max_in_flight"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	LRUSize     int           `yaml:"lru_size" json:"lru_size"`

	CodecAddr string     `yaml:"codec_addr" json:"codec_addr"`
	ONNX      ONNXConfig `yaml:"onnx" json:"onnx"`
}

// DefaultConfig returns provider defaults backed by the hashing model.
func DefaultConfig() Config {
	return Config{
		Model:       "hashing",
		Dimension:   DefaultHashingDim,
		MaxInFlight: 4,
		BatchSize:   4,
		Timeout:     10 * time.Second,
		LRUSize:     4096,
	}
}

// ResolvedModelID returns ModelID, or an identity derived from the model
// kind and its parameters.
func (c Config) ResolvedModelID() string {
	if c.ModelID != "" {
		return c.ModelID
	}
	switch c.Model {
	case "onnx":
		return "onnx:" + c.ONNX.Name
	case "remote":
		return "remote:" + c.CodecAddr
	default:
		return fmt.Sprintf("hashing:%d", c.Dimension)
	}
}

// Validate checks limits and model-specific settings.
func (c Config) Validate() error {
	var errs []error
	if c.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_in_flight must be > 0", ErrInvalidConfig))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be > 0", ErrInvalidConfig))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig))
	}
	if c.LRUSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: lru_size must be > 0", ErrInvalidConfig))
	}
	switch c.Model {
	case "hashing":
		if c.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("%w: hashing model needs dimension > 0", ErrInvalidConfig))
		}
	case "remote":
		if c.CodecAddr == "" {
			errs = append(errs, fmt.Errorf("%w: remote model needs codec_addr", ErrInvalidConfig))
		}
	case "onnx":
		if c.ONNX.ModelPath == "" {
			errs = append(errs, fmt.Errorf("%w: onnx model needs onnx.model_path", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model))
	}
	return errors.Join(errs...)
}

// #endregion config

// #region results
// Result is the outcome of one Embed call.
type Result struct {
	Vector   []float32
	CacheHit bool
}

// Health is the outcome of HealthCheck.
type Health struct {
	OK        bool    `json:"ok"`
	ModelID   string  `json:"model_id"`
	Dimension int     `json:"dimension"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// #endregion results
