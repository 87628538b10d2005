package logging

// #region decision-stats
// DecisionStats summarizes the stored decision log.
type DecisionStats struct {
	Total      int            `json:"total"`
	ByDecision map[string]int `json:"by_decision"`
	ByStatus   map[string]int `json:"by_status"`
	BypassRate float64        `json:"bypass_rate"`
}
// #endregion decision-stats
