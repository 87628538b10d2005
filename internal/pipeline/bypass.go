package pipeline

import (
	"strings"

	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
)

// #region extractors
// TimelineEvent is one timestamped line of the input.
type TimelineEvent struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// extract runs the local handler for a bypass decision and returns the
// structured output.
func extract(route router.Result, ex *router.Extractor, text string) map[string]any {
	switch route.Decision {
	case router.DecisionNER:
		return map[string]any{"entities": nonEmpty(router.Entities(text))}
	case router.DecisionForensic:
		return map[string]any{"timeline": timeline(text)}
	case router.DecisionHarassment:
		return map[string]any{"risk_terms": nonEmpty(ex.RiskTerms(text))}
	case router.DecisionClassification:
		return map[string]any{"scores": classScores(route)}
	}
	return nil
}

// timeline emits one event per timestamp, in input order, carrying the line
// it appeared on.
func timeline(text string) []TimelineEvent {
	events := []TimelineEvent{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, ts := range router.Timestamps(line) {
			events = append(events, TimelineEvent{Timestamp: ts, Text: line})
		}
	}
	return events
}

// classScores returns prototype scores when the embedding step produced
// them, otherwise each class's share of the lexical signal.
func classScores(route router.Result) map[string]float64 {
	if len(route.Scores) > 0 {
		return route.Scores
	}
	s := route.Signals
	raw := map[string]float64{
		string(router.DecisionNER):            float64(s.CapitalizedBigrams),
		string(router.DecisionHarassment):     float64(s.RiskHits),
		string(router.DecisionForensic):       float64(min(s.ForensicHits, s.Timestamps)),
		string(router.DecisionClassification): float64(s.IntentHits),
	}
	var total float64
	for _, v := range raw {
		total += v
	}
	if total == 0 {
		return raw
	}
	for k, v := range raw {
		raw[k] = v / total
	}
	return raw
}

func nonEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// #endregion extractors
