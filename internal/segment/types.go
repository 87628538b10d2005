package segment

import (
	"errors"
	"fmt"

	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
)

// #region segment
// Segment is one unit of candidate context. It lives only for the pipeline
// run that produced it.
type Segment struct {
	Text       string // original unit as it appeared in the input
	Normalized string
	Chars      int // rune count of Normalized

	fp    fingerprint.Fingerprint
	fpSet bool
}

// Fingerprint returns the segment's fingerprint and whether one was assigned.
func (s *Segment) Fingerprint() (fingerprint.Fingerprint, bool) {
	return s.fp, s.fpSet
}

// SetFingerprint assigns the fingerprint once. Later calls are ignored and
// report false.
func (s *Segment) SetFingerprint(fp fingerprint.Fingerprint) bool {
	if s.fpSet {
		return false
	}
	s.fp = fp
	s.fpSet = true
	return true
}

// #endregion segment

// #region config
// Config bounds segmentation.
type Config struct {
	MaxSegments     int `yaml:"max_segments" json:"max_segments"`
	MinSegmentChars int `yaml:"min_segment_chars" json:"min_segment_chars"`
}

// DefaultConfig returns the segmenter defaults.
func DefaultConfig() Config {
	return Config{
		MaxSegments:     64,
		MinSegmentChars: 20,
	}
}

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid segment config")

// Validate rejects configurations the segmenter cannot honor.
func (c Config) Validate() error {
	if c.MaxSegments <= 0 {
		return fmt.Errorf("%w: max_segments must be > 0, got %d", ErrInvalidConfig, c.MaxSegments)
	}
	if c.MinSegmentChars < 0 {
		return fmt.Errorf("%w: min_segment_chars must be >= 0, got %d", ErrInvalidConfig, c.MinSegmentChars)
	}
	return nil
}

// #endregion config

// #region result
// Result is the output of one Split call.
type Result struct {
	Segments []*Segment
	// Truncated is set when MaxSegments was reached and later units were
	// dropped.
	Truncated bool
	// Fallback is set when no unit passed the length filter and the whole
	// input was emitted as a single segment.
	Fallback bool
}

// #endregion result
