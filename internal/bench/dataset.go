package bench

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const maxLineBytes = 1 << 20

// #region dataset-loader

// LoadDataset reads a JSON Lines dataset file.
func LoadDataset(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	defer f.Close()
	samples, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return samples, nil
}

// ReadDataset parses one sample per line. Blank lines and lines starting
// with # are skipped. An empty dataset is an error.
func ReadDataset(r io.Reader) ([]Sample, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var samples []Sample
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var s Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidDataset, line, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidDataset, line, err)
		}
		s.Line = line
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidDataset, line+1, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidDataset)
	}
	return samples, nil
}

func (s Sample) validate() error {
	if strings.TrimSpace(s.Prompt) == "" {
		return fmt.Errorf("empty prompt")
	}
	if !s.ExpectedDecision.Valid() {
		return fmt.Errorf("expected_decision %q is not a routing decision", s.ExpectedDecision)
	}
	if c := s.ExpectedConfidence; c != nil && (math.IsNaN(*c) || *c < 0 || *c > 1) {
		return fmt.Errorf("expected_confidence %v not in [0,1]", *c)
	}
	return nil
}

// #endregion dataset-loader
