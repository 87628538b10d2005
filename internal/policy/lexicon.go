package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SKDesing/aura-osint/go-preintel/internal/textnorm"
)

// #region lexicon-guard
// LexiconGuard is the local hard-veto pass: input size on Pre, blocked terms
// and prompt-injection markers on both Pre and Post.
type LexiconGuard struct {
	config  Config
	blocked []string
	markers []string
	version string
}

// NewLexiconGuard validates config and prepares the folded term lists.
func NewLexiconGuard(config Config) (*LexiconGuard, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	g := &LexiconGuard{config: config}
	for _, t := range config.BlockedTerms {
		g.blocked = append(g.blocked, fold(t))
	}
	for _, m := range config.InjectionMarkers {
		g.markers = append(g.markers, fold(m))
	}
	g.version = lexiconVersion(config)
	return g, nil
}

// Version identifies the rule set; it changes whenever a term or limit does.
func (g *LexiconGuard) Version() string { return g.version }

// Check runs every rule and reports all that fired, each once. It never
// returns an error.
func (g *LexiconGuard) Check(_ context.Context, in Input) (Verdict, error) {
	var rules []string

	if g.config.MaxInputChars > 0 {
		if n := utf8.RuneCountInString(in.Pre); n > g.config.MaxInputChars {
			rules = append(rules, string(RuleInputTooLarge))
		}
	}

	texts := []string{fold(in.Pre), fold(in.Post)}
	for i, term := range g.blocked {
		if containsAny(texts, term) {
			rules = append(rules, fmt.Sprintf("%s:%s", RuleBlockedTerm, g.config.BlockedTerms[i]))
		}
	}
	for _, marker := range g.markers {
		if containsAny(texts, marker) {
			rules = append(rules, string(RulePromptInjection))
			break
		}
	}

	return Verdict{
		Blocked:        len(rules) > 0,
		RulesTriggered: rules,
		Version:        g.version,
	}, nil
}

// #endregion lexicon-guard

// #region helpers
// fold normalizes, joins lines and lower-cases text so matching ignores
// layout and case.
func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(textnorm.Normalize(s)), " "))
}

func containsAny(texts []string, term string) bool {
	for _, t := range texts {
		if t != "" && strings.Contains(t, term) {
			return true
		}
	}
	return false
}

func lexiconVersion(c Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "max=%d\n", c.MaxInputChars)
	for _, t := range c.BlockedTerms {
		fmt.Fprintf(h, "b:%s\n", fold(t))
	}
	for _, m := range c.InjectionMarkers {
		fmt.Fprintf(h, "i:%s\n", fold(m))
	}
	return "lexicon-" + hex.EncodeToString(h.Sum(nil))[:8]
}

// #endregion helpers
