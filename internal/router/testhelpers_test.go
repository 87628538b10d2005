package router

import (
	"context"
	"errors"

	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
)

// fixedEmbedder returns a canned vector per text, or a default.
type fixedEmbedder struct {
	vectors map[string][]float32
	def     []float32
	err     error
	calls   int
	hit     bool
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) (embedding.Result, error) {
	f.calls++
	if f.err != nil {
		return embedding.Result{}, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return embedding.Result{Vector: v, CacheHit: f.hit}, nil
	}
	if f.def == nil {
		return embedding.Result{}, errors.New("no vector")
	}
	return embedding.Result{Vector: f.def, CacheHit: f.hit}, nil
}

func basis(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

func testPrototypes() *PrototypeSet {
	set, err := NewPrototypeSet("test-model", []Prototype{
		{Class: DecisionNER, Centroid: basis(4, 0), Samples: 3},
		{Class: DecisionForensic, Centroid: basis(4, 1), Samples: 3},
		{Class: DecisionHarassment, Centroid: basis(4, 2), Samples: 3},
		{Class: DecisionClassification, Centroid: basis(4, 3), Samples: 3},
	})
	if err != nil {
		panic(err)
	}
	return set
}
