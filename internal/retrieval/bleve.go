package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
)

// #region bleve-searcher
// BleveSearcher is an in-memory full-text index over corpus documents.
// bleve ranks the candidates; the reported score is the fraction of the
// query's content tokens found in the document, so thresholds stay in [0,1]
// independent of corpus statistics.
type BleveSearcher struct {
	index bleve.Index
	docs  map[string]Document
}

type indexedDoc struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// NewBleveSearcher indexes docs in memory.
func NewBleveSearcher(docs []Document) (*BleveSearcher, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	s := &BleveSearcher{index: index, docs: make(map[string]Document, len(docs))}

	batch := index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, indexedDoc{Text: d.Text, Path: d.Path}); err != nil {
			index.Close()
			return nil, fmt.Errorf("index %s: %w", d.ID, err)
		}
		s.docs[d.ID] = d
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index corpus: %w", err)
	}
	return s, nil
}

// Len returns the number of indexed documents.
func (s *BleveSearcher) Len() int { return len(s.docs) }

// Close releases the index.
func (s *BleveSearcher) Close() error { return s.index.Close() }

// Search returns up to topK documents scoring at least threshold, best first.
func (s *BleveSearcher) Search(ctx context.Context, query string, topK int, threshold float32) ([]EvidenceRecord, error) {
	tokens := contentTokens(query)
	if len(tokens) == 0 || topK <= 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = topK
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	var recs []EvidenceRecord
	for _, hit := range res.Hits {
		d, ok := s.docs[hit.ID]
		if !ok {
			continue
		}
		score := keywordScore(tokens, d.Text)
		if score < threshold {
			continue
		}
		meta, _ := json.Marshal(map[string]any{"path": d.Path, "bleve_score": hit.Score})
		recs = append(recs, EvidenceRecord{
			ID:           d.ID,
			Text:         d.Text,
			Score:        score,
			MetadataJSON: string(meta),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	return recs, nil
}

// #endregion bleve-searcher
