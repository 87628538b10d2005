// Package segment splits text into paragraph-like units bounded by blank
// lines.
package segment

import (
	"regexp"
	"unicode/utf8"

	"github.com/SKDesing/aura-osint/go-preintel/internal/textnorm"
)

// blankLineRun matches a newline followed by one or more whitespace-only
// lines, i.e. at least one blank line between two units.
var blankLineRun = regexp.MustCompile(`\n(?:[^\S\n]*\n)+`)

// #region segmenter
// Segmenter splits raw text into normalized segments.
type Segmenter struct {
	config Config
}

// New returns a Segmenter, or an error wrapping ErrInvalidConfig.
func New(config Config) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{config: config}, nil
}

// Config returns the active configuration.
func (s *Segmenter) Config() Config {
	return s.config
}

// #endregion segmenter

// #region split
// Split cuts text on blank lines, normalizes each unit, discards empty units
// and units shorter than MinSegmentChars, and stops once MaxSegments units
// were produced. Content past that point is dropped on purpose and reported
// through Result.Truncated.
//
// Non-empty input always yields at least one segment: when every unit is
// filtered out the whole input becomes the only segment.
func (s *Segmenter) Split(text string) Result {
	var res Result
	if text == "" {
		return res
	}

	units := blankLineRun.Split(textnorm.UnifyLineEndings(text), -1)
	for _, unit := range units {
		normalized := textnorm.Normalize(unit)
		if normalized == "" {
			continue
		}
		chars := utf8.RuneCountInString(normalized)
		if chars < s.config.MinSegmentChars {
			continue
		}
		if len(res.Segments) == s.config.MaxSegments {
			res.Truncated = true
			break
		}
		res.Segments = append(res.Segments, &Segment{
			Text:       unit,
			Normalized: normalized,
			Chars:      chars,
		})
	}

	if len(res.Segments) == 0 {
		normalized := textnorm.Normalize(text)
		res.Segments = []*Segment{{
			Text:       text,
			Normalized: normalized,
			Chars:      utf8.RuneCountInString(normalized),
		}}
		res.Fallback = true
	}
	return res
}

// #endregion split
