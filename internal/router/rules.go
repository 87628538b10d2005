package router

import "fmt"

// #region rules
// applyRules evaluates the deterministic overrides in priority order. The
// first match wins.
func applyRules(f Features, cfg Config) (Result, bool) {
	switch {
	case f.CapitalizedBigrams >= cfg.NERMinBigrams:
		return Result{
			Decision:   DecisionNER,
			Confidence: confidenceNER,
			Reason:     fmt.Sprintf("rule: %d capitalized bigrams >= %d", f.CapitalizedBigrams, cfg.NERMinBigrams),
			Features:   []string{"capitalized_bigrams"},
		}, true
	case f.RiskHits >= cfg.RiskMinHits:
		return Result{
			Decision:   DecisionHarassment,
			Confidence: confidenceHarassment,
			Reason:     fmt.Sprintf("rule: %d risk lexicon hits >= %d", f.RiskHits, cfg.RiskMinHits),
			Features:   []string{"risk_lexicon"},
		}, true
	case f.ForensicHits >= 1 && f.Timestamps >= 1:
		return Result{
			Decision:   DecisionForensic,
			Confidence: confidenceForensic,
			Reason:     fmt.Sprintf("rule: forensic vocabulary (%d) with timestamps (%d)", f.ForensicHits, f.Timestamps),
			Features:   []string{"forensic_vocabulary", "timestamp_pattern"},
		}, true
	case f.IntentHits >= 1:
		return Result{
			Decision:   DecisionClassification,
			Confidence: confidenceClassification,
			Reason:     fmt.Sprintf("rule: %d classification intent phrases", f.IntentHits),
			Features:   []string{"classification_intent"},
		}, true
	}
	return Result{}, false
}

// #endregion rules
