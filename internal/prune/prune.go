// Package prune drops near-duplicate and over-budget segments and assembles
// the surviving context.
package prune

import (
	"strings"

	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// #region engine
// Engine runs pruning passes. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	config Config
	fp     *fingerprint.Fingerprinter
}

// NewEngine validates config and returns an Engine that fingerprints with fp.
func NewEngine(config Config, fp *fingerprint.Fingerprinter) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fp == nil {
		var err error
		if fp, err = fingerprint.New(fingerprint.DefaultBits, nil); err != nil {
			return nil, err
		}
	}
	return &Engine{config: config, fp: fp}, nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.config
}

// WithBudget returns an Engine sharing e's fingerprinter with a different
// character budget. Non-positive budgets return e unchanged.
func (e *Engine) WithBudget(maxChars int) *Engine {
	if maxChars <= 0 || maxChars == e.config.MaxContextChars {
		return e
	}
	cfg := e.config
	cfg.MaxContextChars = maxChars
	return &Engine{config: cfg, fp: e.fp}
}

// #endregion engine

// #region run
// Run scans segments in order and returns the kept ones with stats.
// Earlier segments win: a segment within SimilarityThreshold of an already
// kept one is dropped without consuming budget. A segment that would push
// the running total past MaxContextChars is dropped and scanning continues.
// The pairwise scan is quadratic in the kept count, which MaxSegments bounds.
func (e *Engine) Run(segments []*segment.Segment) ([]*segment.Segment, Stats) {
	var (
		stats    Stats
		kept     []*segment.Segment
		accepted []fingerprint.Fingerprint
		total    int
	)

	for _, seg := range segments {
		stats.TotalCharsBefore += seg.Chars

		fp, ok := seg.Fingerprint()
		if !ok {
			fp = e.fp.Compute(seg.Normalized)
			seg.SetFingerprint(fp)
		}

		if seg.Normalized == "" {
			stats.DroppedOther++
			continue
		}

		if fp.HasSignal() && e.nearDuplicate(fp, accepted) {
			stats.DroppedSimilar++
			continue
		}

		if total+seg.Chars > e.config.MaxContextChars {
			stats.DroppedLimit++
			continue
		}

		kept = append(kept, seg)
		total += seg.Chars
		if fp.HasSignal() {
			accepted = append(accepted, fp)
		}
	}

	stats.Kept = len(kept)
	stats.TotalCharsAfter = total
	stats.EstTokensSaved = (stats.TotalCharsBefore - stats.TotalCharsAfter) / e.config.CharsPerToken
	return kept, stats
}

func (e *Engine) nearDuplicate(fp fingerprint.Fingerprint, accepted []fingerprint.Fingerprint) bool {
	for _, prev := range accepted {
		d, err := fingerprint.Distance(fp, prev)
		// A width mismatch means the segment was fingerprinted elsewhere;
		// it cannot be compared, so it is not a duplicate.
		if err != nil {
			continue
		}
		if d <= e.config.SimilarityThreshold {
			return true
		}
	}
	return false
}

// #endregion run

// #region assemble
// Assemble joins kept segments' normalized text with a blank line.
func Assemble(segments []*segment.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = seg.Normalized
	}
	return strings.Join(parts, "\n\n")
}

// #endregion assemble
