package retrieval

import (
	"fmt"

	"github.com/SKDesing/aura-osint/go-preintel/internal/codec"
	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// NewSearcher builds the Searcher selected by config.Source. It returns a
// nil Searcher for "none". client is required for "remote" and seg for
// "bleve".
func NewSearcher(config Config, client *codec.CodecClient, seg *segment.Segmenter) (Searcher, error) {
	switch config.Source {
	case "", "none":
		return nil, nil
	case "remote":
		if client == nil {
			return nil, fmt.Errorf("%w: remote source needs a codec client", ErrInvalidConfig)
		}
		return NewCodecSearcher(client), nil
	case "bleve":
		if seg == nil {
			return nil, fmt.Errorf("%w: bleve source needs a segmenter", ErrInvalidConfig)
		}
		docs, err := LoadCorpus(config.CorpusDir, config.Include, config.Exclude, seg)
		if err != nil {
			return nil, err
		}
		s, err := NewBleveSearcher(docs)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, config.Source)
	}
}
