package bench

import (
	"context"
	"fmt"
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/SKDesing/aura-osint/go-preintel/internal/embedding"
	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/textnorm"
)

// BatchEmbedder is the part of the embedding provider prototype building
// needs.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Result, error)
	ModelID() string
}

// #region build-prototypes
// BuildPrototypes averages the embeddings of every non-fallback sample per
// class. Fallback classes (llm, rag+llm) are skipped since the router never
// matches them by prototype.
func BuildPrototypes(ctx context.Context, embedder BatchEmbedder, samples []Sample) (*router.PrototypeSet, error) {
	byClass := map[router.Decision][]string{}
	for _, s := range samples {
		if s.ExpectedDecision.IsModelPath() {
			continue
		}
		byClass[s.ExpectedDecision] = append(byClass[s.ExpectedDecision], textnorm.Normalize(s.Prompt))
	}
	if len(byClass) == 0 {
		return nil, fmt.Errorf("%w: no labeled bypass samples", ErrInvalidDataset)
	}

	classes := make([]router.Decision, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	protos := make([]router.Prototype, 0, len(classes))
	for _, class := range classes {
		texts := byClass[class]
		results, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s samples: %w", class, err)
		}
		var centroid []float32
		for i, r := range results {
			if centroid == nil {
				centroid = make([]float32, len(r.Vector))
			}
			if len(r.Vector) != len(centroid) {
				return nil, fmt.Errorf("%s sample %d: %w", class, i, embedding.ErrInvalidVector)
			}
			vek32.Add_Inplace(centroid, r.Vector)
		}
		vek32.MulNumber_Inplace(centroid, 1/float32(len(results)))
		protos = append(protos, router.Prototype{
			Class:    class,
			Centroid: centroid,
			Samples:  len(results),
		})
	}
	return router.NewPrototypeSet(embedder.ModelID(), protos)
}

// #endregion build-prototypes
