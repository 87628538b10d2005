package router

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid router config")

// #region config
// Config holds rule thresholds and fixed confidences.
type Config struct {
	NERMinBigrams      int      `yaml:"ner_min_bigrams" json:"ner_min_bigrams"`
	RiskMinHits        int      `yaml:"risk_min_hits" json:"risk_min_hits"`
	MinConfidence      float64  `yaml:"min_confidence" json:"min_confidence"` // embedding score floor
	FallbackConfidence float64  `yaml:"fallback_confidence" json:"fallback_confidence"`
	PrototypesPath     string   `yaml:"prototypes_path" json:"prototypes_path"`
	Lexicons           Lexicons `yaml:"lexicons" json:"lexicons"`
}

// DefaultConfig returns the router defaults.
func DefaultConfig() Config {
	return Config{
		NERMinBigrams:      2,
		RiskMinHits:        1,
		MinConfidence:      0.55,
		FallbackConfidence: 0.30,
	}
}

// Validate rejects thresholds the rules cannot use.
func (c Config) Validate() error {
	var errs []error
	if c.NERMinBigrams < 1 {
		errs = append(errs, fmt.Errorf("%w: ner_min_bigrams must be >= 1", ErrInvalidConfig))
	}
	if c.RiskMinHits < 1 {
		errs = append(errs, fmt.Errorf("%w: risk_min_hits must be >= 1", ErrInvalidConfig))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("%w: min_confidence must be in [0,1]", ErrInvalidConfig))
	}
	if c.FallbackConfidence < 0 || c.FallbackConfidence > 1 {
		errs = append(errs, fmt.Errorf("%w: fallback_confidence must be in [0,1]", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// #endregion config

// Fixed rule confidences.
const (
	confidenceNER            = 0.90
	confidenceHarassment     = 0.92
	confidenceForensic       = 0.88
	confidenceClassification = 0.85
)

// #region result
// CacheStatus reports how the embedding step was served.
type CacheStatus string

const (
	CacheHit     CacheStatus = "hit"
	CacheMiss    CacheStatus = "miss"
	CacheSkipped CacheStatus = "skipped"
)

// Input is one classification request.
type Input struct {
	Text string // normalized request text; lexical features run on it
	// EmbedText is embedded for the prototype comparison. Empty means Text.
	EmbedText string
	// HasRetrieval reports whether retrieval produced usable context.
	HasRetrieval bool
}

// Result is the routing outcome.
type Result struct {
	Decision      Decision           `json:"decision"`
	Confidence    float64            `json:"confidence"`
	Reason        string             `json:"reason"`
	Features      []string           `json:"features"`
	Scores        map[string]float64 `json:"scores,omitempty"`
	CacheStatus   CacheStatus        `json:"cache_status"`
	Degraded      bool               `json:"degraded"`
	RouterVersion string             `json:"router_version"`
	Signals       Features           `json:"signals"`
}

// #endregion result
