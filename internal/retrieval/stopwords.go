package retrieval

import (
	"strings"

	"github.com/SKDesing/aura-osint/go-preintel/internal/fingerprint"
)

// #region stopwords
// stopwords are excluded when measuring a query's content.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"will": true, "would": true, "could": true, "should": true, "not": true,
	"and": true, "or": true, "but": true, "if": true, "so": true,
	"at": true, "by": true, "for": true, "from": true, "in": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"it": true, "this": true, "that": true, "what": true, "which": true,
	"who": true, "how": true, "when": true, "where": true, "why": true,
	"you": true, "me": true, "i": true, "my": true, "your": true,
	"we": true, "they": true, "please": true, "tell": true,
	"le": true, "la": true, "les": true, "de": true, "des": true,
	"du": true, "un": true, "une": true, "et": true, "est": true,
	"que": true, "qui": true, "pour": true, "dans": true, "sur": true,
}

// contentTokens returns the unique non-stopword tokens of text, at least two
// characters long, in first-seen order.
func contentTokens(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range fingerprint.Tokenize(text) {
		if len([]rune(w)) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// sharedKeywords returns the count of tokens present in both slices.
func sharedKeywords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}

// keywordScore is the fraction of query tokens found in text.
func keywordScore(query []string, text string) float32 {
	if len(query) == 0 {
		return 0
	}
	return float32(sharedKeywords(query, contentTokens(text))) / float32(len(query))
}

// joinEvidence concatenates evidence texts with blank lines.
func joinEvidence(recs []EvidenceRecord) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = r.Text
	}
	return strings.Join(parts, "\n\n")
}

// #endregion stopwords
