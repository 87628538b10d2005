package retrieval

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/SKDesing/aura-osint/go-preintel/internal/segment"
)

// ErrInvalidPattern is returned when an include or exclude glob does not compile.
var ErrInvalidPattern = errors.New("invalid corpus pattern")

// #region document
// Document is one searchable chunk of a corpus file.
type Document struct {
	ID   string `json:"id"`   // <relative path>#<chunk index>
	Path string `json:"path"` // slash-separated, relative to the corpus root
	Text string `json:"text"`
}

// #endregion document

// #region load-corpus
// LoadCorpus walks dir and chunks every regular file selected by include
// (all files when empty) and not selected by exclude. A pattern matches
// either the slash-separated relative path or the base name. Chunks are the
// segmenter's output for the file.
func LoadCorpus(dir string, include, exclude []string, seg *segment.Segmenter) ([]Document, error) {
	inc, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileGlobs(exclude)
	if err != nil {
		return nil, err
	}

	var docs []Document
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if (len(inc) > 0 && !matchAny(inc, rel)) || matchAny(exc, rel) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read corpus file %s: %w", rel, err)
		}
		res := seg.Split(string(data))
		for i, s := range res.Segments {
			if s.Normalized == "" {
				continue
			}
			docs = append(docs, Document{
				ID:   fmt.Sprintf("%s#%d", rel, i),
				Path: rel,
				Text: s.Normalized,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", dir, err)
	}
	return docs, nil
}

// #endregion load-corpus

// #region globs
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

func matchAny(matchers []glob.Glob, rel string) bool {
	base := path.Base(rel)
	for _, g := range matchers {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// #endregion globs
