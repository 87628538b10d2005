package router

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
)

// timestampPattern matches ISO dates with optional time and zone, slash
// dates, and clock times. Alternatives are tried left to right, so an ISO
// datetime counts once.
var timestampPattern = regexp.MustCompile(
	`\b(?:\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?)?` +
		`|\d{1,2}/\d{1,2}/\d{2,4}` +
		`|\d{1,2}[:h]\d{2}(?::\d{2})?)\b`)

// #region features
// Features are the cheap lexical signals computed before any embedding.
type Features struct {
	Language           string `json:"language"` // en | fr | unknown
	Question           bool   `json:"question"`
	CapitalizedBigrams int    `json:"capitalized_bigrams"`
	RiskHits           int    `json:"risk_hits"`
	ForensicHits       int    `json:"forensic_hits"`
	IntentHits         int    `json:"intent_hits"`
	Timestamps         int    `json:"timestamps"`
	Tokens             int    `json:"tokens"`
}

// #endregion features

// #region extractor
// Extractor computes Features against a fixed set of lexicons.
type Extractor struct {
	lex            Lexicons
	risk           [][]string
	forensic       [][]string
	classification [][]string
	interrogatives [][]string
}

// NewExtractor compiles lex. Empty lists fall back to the defaults.
func NewExtractor(lex Lexicons) *Extractor {
	lex = lex.withDefaults()
	return &Extractor{
		lex:            lex,
		risk:           compileTerms(lex.Risk),
		forensic:       compileTerms(lex.Forensic),
		classification: compileTerms(lex.Classification),
		interrogatives: compileTerms(lex.Interrogatives),
	}
}

var defaultExtractor = NewExtractor(DefaultLexicons())

// ExtractFeatures computes Features with the default lexicons.
func ExtractFeatures(text string) Features {
	return defaultExtractor.Extract(text)
}

// Extract computes Features for text, which should already be normalized.
func (e *Extractor) Extract(text string) Features {
	tokens := fingerprint.Tokenize(text)
	return Features{
		Language:           detectLanguage(tokens),
		Question:           strings.Contains(text, "?") || startsWithAny(tokens, e.interrogatives),
		CapitalizedBigrams: countBigrams(text),
		RiskHits:           countTerms(tokens, e.risk),
		ForensicHits:       countTerms(tokens, e.forensic),
		IntentHits:         countTerms(tokens, e.classification),
		Timestamps:         len(timestampPattern.FindAllStringIndex(text, -1)),
		Tokens:             len(tokens),
	}
}

// RiskTerms returns the risk-lexicon terms present in text, in lexicon order.
func (e *Extractor) RiskTerms(text string) []string {
	tokens := fingerprint.Tokenize(text)
	var found []string
	for i, term := range e.risk {
		if countTerms(tokens, [][]string{term}) > 0 {
			found = append(found, e.lex.Risk[i])
		}
	}
	return found
}

// #endregion extractor

// #region term-matching
func compileTerms(terms []string) [][]string {
	out := make([][]string, 0, len(terms))
	for _, t := range terms {
		if toks := fingerprint.Tokenize(t); len(toks) > 0 {
			out = append(out, toks)
		}
	}
	return out
}

// countTerms counts whole-token occurrences of every term in tokens.
func countTerms(tokens []string, terms [][]string) int {
	n := 0
	for _, term := range terms {
		for i := 0; i+len(term) <= len(tokens); i++ {
			if matchAt(tokens, i, term) {
				n++
			}
		}
	}
	return n
}

func startsWithAny(tokens []string, terms [][]string) bool {
	for _, term := range terms {
		if len(term) <= len(tokens) && matchAt(tokens, 0, term) {
			return true
		}
	}
	return false
}

func matchAt(tokens []string, i int, term []string) bool {
	for j, t := range term {
		if tokens[i+j] != t {
			return false
		}
	}
	return true
}

// #endregion term-matching

// #region language
func detectLanguage(tokens []string) string {
	var en, fr int
	for _, t := range tokens {
		if englishStopwords[t] {
			en++
		}
		if frenchStopwords[t] {
			fr++
		}
	}
	switch {
	case en > fr:
		return "en"
	case fr > en:
		return "fr"
	default:
		return "unknown"
	}
}

// #endregion language

// #region entities
// Entities returns runs of two or more adjacent capitalized words, the
// named-entity proxy. A word ending a sentence or clause closes the run.
func Entities(text string) []string {
	var (
		out []string
		run []string
	)
	flush := func() {
		if len(run) >= 2 {
			out = append(out, strings.Join(run, " "))
		}
		run = run[:0]
	}
	for _, raw := range strings.Fields(text) {
		word := strings.TrimFunc(raw, isEdgePunct)
		if !capitalized(word) {
			flush()
			continue
		}
		run = append(run, word)
		if endsClause(raw) {
			flush()
		}
	}
	flush()
	return out
}

// countBigrams counts adjacent capitalized word pairs across all entities.
func countBigrams(text string) int {
	n := 0
	for _, e := range Entities(text) {
		n += len(strings.Fields(e)) - 1
	}
	return n
}

// Timestamps returns the timestamp-like substrings of text.
func Timestamps(text string) []string {
	return timestampPattern.FindAllString(text, -1)
}

func capitalized(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 || !unicode.IsUpper(r) {
		return false
	}
	// Require a lowercase letter so acronyms and shouting do not count.
	for _, c := range word[size:] {
		if unicode.IsLower(c) {
			return true
		}
	}
	return false
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func endsClause(raw string) bool {
	r, _ := utf8.DecodeLastRuneInString(raw)
	return strings.ContainsRune(".!?;:,)", r)
}

// #endregion entities
