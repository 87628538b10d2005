package retrieval

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid retrieval config")

// #region config
// Config holds thresholds and limits for the 3-gate retrieval pipeline.
type Config struct {
	Source              string   `yaml:"source" json:"source"`                     // none | bleve | remote
	MinQueryTokens      int      `yaml:"min_query_tokens" json:"min_query_tokens"` // Gate 1: content tokens needed to search
	SimilarityThreshold float32  `yaml:"similarity_threshold" json:"similarity_threshold"`
	TopK                int      `yaml:"top_k" json:"top_k"`
	MaxEvidenceLen      int      `yaml:"max_evidence_len" json:"max_evidence_len"` // runes per evidence text
	DedupDistance       int      `yaml:"dedup_distance" json:"dedup_distance"`     // fingerprint distance treated as duplicate evidence
	CorpusDir           string   `yaml:"corpus_dir" json:"corpus_dir"`
	Include             []string `yaml:"include" json:"include"`
	Exclude             []string `yaml:"exclude" json:"exclude"`
}

// DefaultConfig returns retrieval defaults. Retrieval is off until a source
// is configured.
func DefaultConfig() Config {
	return Config{
		Source:              "none",
		MinQueryTokens:      2,
		SimilarityThreshold: 0.3,
		TopK:                5,
		MaxEvidenceLen:      2000,
		DedupDistance:       3,
		Include:             []string{"**.md", "**.txt"},
	}
}

// Validate checks limits and the source-specific settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case "none", "remote":
	case "bleve":
		if c.CorpusDir == "" {
			errs = append(errs, fmt.Errorf("%w: bleve source needs corpus_dir", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: top_k must be > 0", ErrInvalidConfig))
	}
	if c.MinQueryTokens < 0 || c.MaxEvidenceLen < 0 || c.DedupDistance < 0 {
		errs = append(errs, fmt.Errorf("%w: min_query_tokens, max_evidence_len and dedup_distance must be >= 0", ErrInvalidConfig))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("%w: similarity_threshold must be in [0,1]", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// #endregion config

// #region evidence-record
// EvidenceRecord represents a single piece of retrieved evidence.
type EvidenceRecord struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Score        float32 `json:"score"`
	MetadataJSON string  `json:"metadata_json,omitempty"`
}

// #endregion evidence-record

// #region gate-result
// GateResult captures the outcome of the 3-gate retrieval pipeline.
type GateResult struct {
	Gate1Passed bool             // query carried enough signal
	Gate2Count  int              // results above similarity threshold
	Gate3Count  int              // results passing consistency check
	Retrieved   []EvidenceRecord // final evidence after all gates
	Context     string           // evidence texts joined by blank lines
	ContextHash string           // hex SHA-256 of Context, empty when nothing was retrieved
	Reason      string           // human-readable explanation
}

// Used reports whether retrieval produced evidence.
func (g GateResult) Used() bool { return len(g.Retrieved) > 0 }

// #endregion gate-result
