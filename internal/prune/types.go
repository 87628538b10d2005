package prune

import (
	"errors"
	"fmt"
)

// #region config
// Config controls one pruning pass.
type Config struct {
	SimilarityThreshold int `yaml:"similarity_threshold" json:"similarity_threshold"` // max Hamming distance treated as a near-duplicate
	MaxContextChars     int `yaml:"max_context_chars" json:"max_context_chars"`
	CharsPerToken       int `yaml:"chars_per_token" json:"chars_per_token"`
}

// DefaultConfig returns the pruning defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 3,
		MaxContextChars:     6000,
		CharsPerToken:       4,
	}
}

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid prune config")

// Validate rejects negative thresholds and non-positive budgets.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 {
		return fmt.Errorf("%w: similarity_threshold must be >= 0, got %d", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.MaxContextChars <= 0 {
		return fmt.Errorf("%w: max_context_chars must be > 0, got %d", ErrInvalidConfig, c.MaxContextChars)
	}
	if c.CharsPerToken <= 0 {
		return fmt.Errorf("%w: chars_per_token must be > 0, got %d", ErrInvalidConfig, c.CharsPerToken)
	}
	return nil
}

// #endregion config

// #region stats
// Stats aggregates one pruning pass.
// Kept + DroppedSimilar + DroppedLimit + DroppedOther equals the input count.
type Stats struct {
	Kept             int `json:"kept"`
	DroppedSimilar   int `json:"dropped_similar"`
	DroppedLimit     int `json:"dropped_limit"`
	DroppedOther     int `json:"dropped_other"`
	TotalCharsBefore int `json:"total_chars_before"`
	TotalCharsAfter  int `json:"total_chars_after"`
	EstTokensSaved   int `json:"est_tokens_saved"`
}

// Total returns the number of segments the pass looked at.
func (s Stats) Total() int {
	return s.Kept + s.DroppedSimilar + s.DroppedLimit + s.DroppedOther
}

// #endregion stats
