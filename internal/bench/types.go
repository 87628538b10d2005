package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// ErrInvalidDataset is wrapped by every dataset parse or validation failure.
var ErrInvalidDataset = errors.New("invalid bench dataset")

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid bench config")

// #region config
// Config holds the release gates.
type Config struct {
	MinAccuracy     float64       `yaml:"min_accuracy" json:"min_accuracy"`
	MinBypassRate   float64       `yaml:"min_bypass_rate" json:"min_bypass_rate"`
	MaxAvgLatency   time.Duration `yaml:"max_avg_latency" json:"max_avg_latency"`
	ConfidenceDelta float64       `yaml:"confidence_delta" json:"confidence_delta"` // 0 disables the confidence check
}

// DefaultConfig returns the gates a router build must clear before release.
func DefaultConfig() Config {
	return Config{
		MinAccuracy:   0.75,
		MinBypassRate: 0.55,
		MaxAvgLatency: 50 * time.Millisecond,
	}
}

// Validate rejects thresholds outside their range.
func (c Config) Validate() error {
	var errs []error
	if c.MinAccuracy < 0 || c.MinAccuracy > 1 {
		errs = append(errs, fmt.Errorf("%w: min_accuracy %v not in [0,1]", ErrInvalidConfig, c.MinAccuracy))
	}
	if c.MinBypassRate < 0 || c.MinBypassRate > 1 {
		errs = append(errs, fmt.Errorf("%w: min_bypass_rate %v not in [0,1]", ErrInvalidConfig, c.MinBypassRate))
	}
	if c.MaxAvgLatency <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_avg_latency must be positive", ErrInvalidConfig))
	}
	if c.ConfidenceDelta < 0 || c.ConfidenceDelta > 1 {
		errs = append(errs, fmt.Errorf("%w: confidence_delta %v not in [0,1]", ErrInvalidConfig, c.ConfidenceDelta))
	}
	return errors.Join(errs...)
}

// #endregion config

// #region sample
// Sample is one labeled dataset line.
type Sample struct {
	Prompt             string          `json:"prompt"`
	ExpectedDecision   router.Decision `json:"expected_decision"`
	ExpectedConfidence *float64        `json:"expected_confidence,omitempty"`
	Line               int             `json:"-"`
}

// Outcome is the classifier's answer for one sample.
type Outcome struct {
	Sample     Sample
	Got        router.Decision
	Confidence float64
	Latency    time.Duration
	Correct    bool
	Degraded   bool
}

// #endregion sample

// #region report
// Gate is one release check.
type Gate struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Pass      bool    `json:"pass"`
}

// Latency summarizes per-call classification time in milliseconds.
type Latency struct {
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// Report is the JSON document cmd/bench writes.
type Report struct {
	Total         int                       `json:"total"`
	Correct       int                       `json:"correct"`
	Accuracy      float64                   `json:"accuracy"`
	BypassRate    float64                   `json:"bypass_rate"`
	AvgConfidence float64                   `json:"avg_confidence"`
	Degraded      int                       `json:"degraded"`
	Latency       Latency                   `json:"latency_ms"`
	Confusion     map[string]map[string]int `json:"confusion"`
	Gates         []Gate                    `json:"gates"`
	Passed        bool                      `json:"passed"`
	Reason        string                    `json:"reason"`
	RouterVersion string                    `json:"router_version"`
}

// #endregion report
