package embedding

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
)

// DefaultHashingDim is the width of HashingModel vectors unless configured.
const DefaultHashingDim = 256

// #region hashing-model
// HashingModel is a deterministic feature-hashing embedder over unigrams and
// adjacent-token bigrams. It needs no external resources, which makes it the
// model for offline runs and tests.
type HashingModel struct {
	dim int
}

// NewHashingModel returns a HashingModel of width dim (DefaultHashingDim if
// dim <= 0).
func NewHashingModel(dim int) *HashingModel {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &HashingModel{dim: dim}
}

// Dimension returns the vector width.
func (h *HashingModel) Dimension() int { return h.dim }

// Embed returns the L2-normalized hashed bag of features. Text without
// tokens yields the zero vector.
func (h *HashingModel) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	tokens := fingerprint.Tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	normalize(vec)
	return vec, nil
}

func (h *HashingModel) add(vec []float32, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := sum % uint64(h.dim)
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// #endregion hashing-model

// normalize scales v to unit length in place. The zero vector is left as is.
func normalize(v []float32) {
	var sq float64
	for _, f := range v {
		sq += float64(f) * float64(f)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range v {
		v[i] *= inv
	}
}
