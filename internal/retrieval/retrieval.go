package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
)

// #region searcher
// Searcher runs a similarity search and returns at most topK records whose
// score is at least threshold, best first.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, threshold float32) ([]EvidenceRecord, error)
}

// CodecSearcher searches through the remote inference service.
type CodecSearcher struct {
	client *codec.CodecClient
}

// NewCodecSearcher wraps a codec client as a Searcher.
func NewCodecSearcher(client *codec.CodecClient) *CodecSearcher {
	return &CodecSearcher{client: client}
}

// Search calls Inference/Search. The threshold is enforced server-side.
func (s *CodecSearcher) Search(ctx context.Context, query string, topK int, threshold float32) ([]EvidenceRecord, error) {
	results, err := s.client.Search(ctx, query, topK, threshold)
	if err != nil {
		return nil, err
	}
	recs := make([]EvidenceRecord, len(results))
	for i, sr := range results {
		recs[i] = EvidenceRecord{
			ID:           sr.ID,
			Text:         sr.Text,
			Score:        sr.Score,
			MetadataJSON: sr.MetadataJSON,
		}
	}
	return recs, nil
}

// #endregion searcher

// #region retriever
// Retriever orchestrates triple-gated evidence retrieval.
type Retriever struct {
	searcher Searcher
	config   Config
	fp       *fingerprint.Fingerprinter
}

// NewRetriever creates a Retriever over searcher. fp is used for
// near-duplicate detection; nil means the default 64-bit fingerprinter.
func NewRetriever(searcher Searcher, config Config, fp *fingerprint.Fingerprinter) (*Retriever, error) {
	if searcher == nil {
		return nil, fmt.Errorf("%w: nil searcher", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fp == nil {
		var err error
		if fp, err = fingerprint.New(fingerprint.DefaultBits, nil); err != nil {
			return nil, err
		}
	}
	return &Retriever{searcher: searcher, config: config, fp: fp}, nil
}

// #endregion retriever

// #region retrieve
// Retrieve runs the 3-gate retrieval pipeline:
//  1. Signal gate: skip retrieval when the query has too few content tokens
//  2. Similarity gate: search with TopK and SimilarityThreshold
//  3. Consistency gate: validate results (non-empty, reasonable length, no dupes)
func (r *Retriever) Retrieve(ctx context.Context, query string) (GateResult, error) {
	result := GateResult{}

	tokens := contentTokens(query)
	if len(tokens) < r.config.MinQueryTokens {
		result.Reason = fmt.Sprintf("gate1: %d content tokens < minimum %d", len(tokens), r.config.MinQueryTokens)
		return result, nil
	}
	result.Gate1Passed = true

	gate2Results, err := r.searcher.Search(ctx, query, r.config.TopK, r.config.SimilarityThreshold)
	if err != nil {
		return result, fmt.Errorf("retrieval search: %w", err)
	}
	result.Gate2Count = len(gate2Results)

	if result.Gate2Count == 0 {
		result.Reason = "gate2: no results above similarity threshold"
		return result, nil
	}

	gate3Results := r.consistencyCheck(gate2Results)
	result.Gate3Count = len(gate3Results)
	result.Retrieved = gate3Results

	if result.Gate3Count == 0 {
		result.Reason = "gate3: all results failed consistency check"
		return result, nil
	}

	result.Context = joinEvidence(gate3Results)
	sum := sha256.Sum256([]byte(result.Context))
	result.ContextHash = hex.EncodeToString(sum[:])
	result.Reason = fmt.Sprintf("retrieved %d evidence items (gate2=%d, gate3=%d)",
		result.Gate3Count, result.Gate2Count, result.Gate3Count)

	return result, nil
}

// #endregion retrieve

// #region consistency-check
// consistencyCheck validates retrieved evidence against basic constraints:
//   - Non-empty text
//   - Text within MaxEvidenceLen runes
//   - No duplicate IDs
//   - No near-duplicate text of an earlier record
func (r *Retriever) consistencyCheck(results []EvidenceRecord) []EvidenceRecord {
	seen := make(map[string]bool)
	var accepted []fingerprint.Fingerprint
	var valid []EvidenceRecord

	for _, rec := range results {
		if rec.Text == "" {
			continue
		}
		if r.config.MaxEvidenceLen > 0 && utf8.RuneCountInString(rec.Text) > r.config.MaxEvidenceLen {
			continue
		}
		if seen[rec.ID] {
			continue
		}
		fp := r.fp.Compute(rec.Text)
		if fp.HasSignal() && r.nearDuplicate(fp, accepted) {
			continue
		}
		seen[rec.ID] = true
		if fp.HasSignal() {
			accepted = append(accepted, fp)
		}
		valid = append(valid, rec)
	}

	return valid
}

func (r *Retriever) nearDuplicate(fp fingerprint.Fingerprint, accepted []fingerprint.Fingerprint) bool {
	for _, prev := range accepted {
		if d, err := fingerprint.Distance(fp, prev); err == nil && d <= r.config.DedupDistance {
			return true
		}
	}
	return false
}

// #endregion consistency-check
