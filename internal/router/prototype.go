package router

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPrototypes is wrapped by every prototype validation failure.
var ErrInvalidPrototypes = errors.New("invalid prototype set")

// #region prototype
// Prototype is one class centroid built from labeled samples.
type Prototype struct {
	Class    Decision  `yaml:"class" json:"class"`
	Centroid []float32 `yaml:"centroid" json:"centroid"`
	Samples  int       `yaml:"samples" json:"samples"`
	Dim      int       `yaml:"dim" json:"dim"`
}

// PrototypeSet is versioned as a unit: Version is a content hash over every
// class and centroid, so changing any centroid yields a new version.
type PrototypeSet struct {
	ModelID    string      `yaml:"model_id" json:"model_id"`
	Version    string      `yaml:"version" json:"version"`
	Prototypes []Prototype `yaml:"prototypes" json:"prototypes"`
}

// Dim returns the shared centroid width, or 0 for an empty set.
func (s *PrototypeSet) Dim() int {
	if s == nil || len(s.Prototypes) == 0 {
		return 0
	}
	return s.Prototypes[0].Dim
}

// #endregion prototype

// #region build
// NewPrototypeSet validates protos, L2-normalizes their centroids and stamps
// the content version. The input slice is not modified.
func NewPrototypeSet(modelID string, protos []Prototype) (*PrototypeSet, error) {
	if len(protos) == 0 {
		return nil, fmt.Errorf("%w: no prototypes", ErrInvalidPrototypes)
	}
	out := make([]Prototype, len(protos))
	seen := make(map[Decision]bool, len(protos))
	dim := len(protos[0].Centroid)
	for i, p := range protos {
		if !p.Class.Valid() {
			return nil, fmt.Errorf("%w: prototype %d: %w: %q", ErrInvalidPrototypes, i, ErrInvalidDecision, p.Class)
		}
		if p.Class.IsModelPath() {
			return nil, fmt.Errorf("%w: prototype %d: %s is a fallback class", ErrInvalidPrototypes, i, p.Class)
		}
		if seen[p.Class] {
			return nil, fmt.Errorf("%w: duplicate class %s", ErrInvalidPrototypes, p.Class)
		}
		seen[p.Class] = true
		if len(p.Centroid) == 0 || len(p.Centroid) != dim {
			return nil, fmt.Errorf("%w: %s has %d dims, want %d", ErrInvalidPrototypes, p.Class, len(p.Centroid), dim)
		}
		if p.Dim != 0 && p.Dim != len(p.Centroid) {
			return nil, fmt.Errorf("%w: %s declares dim %d but has %d values", ErrInvalidPrototypes, p.Class, p.Dim, len(p.Centroid))
		}
		c := make([]float32, dim)
		var sq float64
		for j, f := range p.Centroid {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return nil, fmt.Errorf("%w: %s has non-finite value at %d", ErrInvalidPrototypes, p.Class, j)
			}
			c[j] = f
			sq += float64(f) * float64(f)
		}
		if sq == 0 {
			return nil, fmt.Errorf("%w: %s centroid is zero", ErrInvalidPrototypes, p.Class)
		}
		// Already-unit centroids are left untouched so that reloading a saved
		// set reproduces its version exactly.
		if norm := math.Sqrt(sq); math.Abs(norm-1) > 1e-6 {
			inv := float32(1 / norm)
			for j := range c {
				c[j] *= inv
			}
		}
		out[i] = Prototype{Class: p.Class, Centroid: c, Samples: p.Samples, Dim: dim}
	}
	set := &PrototypeSet{ModelID: modelID, Prototypes: out}
	set.Version = set.contentVersion()
	return set, nil
}

func (s *PrototypeSet) contentVersion() string {
	h := sha256.New()
	h.Write([]byte(s.ModelID))
	h.Write([]byte{0})
	var buf [4]byte
	for _, p := range s.Prototypes {
		h.Write([]byte(p.Class))
		h.Write([]byte{0})
		for _, f := range p.Centroid {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			h.Write(buf[:])
		}
	}
	return "proto-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// #endregion build

// #region load-save
// LoadPrototypes reads a YAML or JSON prototype file. The stored version is
// ignored and recomputed from the content.
func LoadPrototypes(path string) (*PrototypeSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prototypes: %w", err)
	}
	var raw PrototypeSet
	if isJSON(path) {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse prototypes %s: %w", path, err)
	}
	return NewPrototypeSet(raw.ModelID, raw.Prototypes)
}

// SavePrototypes writes set to path through a temp file and rename, so
// readers and watchers never see a partial file.
func SavePrototypes(path string, set *PrototypeSet) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(set, "", "  ")
	} else {
		data, err = yaml.Marshal(set)
	}
	if err != nil {
		return fmt.Errorf("encode prototypes: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename prototypes: %w", err)
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// #endregion load-save
