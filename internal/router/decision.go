package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDecision is returned when parsing a value outside the closed
// decision set.
var ErrInvalidDecision = errors.New("invalid routing decision")

// #region decision
// Decision is the routing outcome. The set is closed; values outside it
// never survive parsing or decoding.
type Decision string

const (
	DecisionNER            Decision = "ner"
	DecisionForensic       Decision = "forensic"
	DecisionHarassment     Decision = "harassment"
	DecisionClassification Decision = "classification"
	DecisionRAGLLM         Decision = "rag+llm"
	DecisionLLM            Decision = "llm"
)

// Decisions lists every valid decision in rule priority order, followed by
// the two model paths.
var Decisions = []Decision{
	DecisionNER,
	DecisionHarassment,
	DecisionForensic,
	DecisionClassification,
	DecisionRAGLLM,
	DecisionLLM,
}

// ParseDecision returns the Decision named by s.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
	return d, nil
}

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionNER, DecisionForensic, DecisionHarassment, DecisionClassification, DecisionRAGLLM, DecisionLLM:
		return true
	}
	return false
}

// IsModelPath reports whether d sends the request to a full model call.
func (d Decision) IsModelPath() bool {
	return d == DecisionLLM || d == DecisionRAGLLM
}

// IsBypass reports whether d avoids the model call.
func (d Decision) IsBypass() bool {
	return d.Valid() && !d.IsModelPath()
}

func (d Decision) String() string { return string(d) }

// UnmarshalJSON rejects unknown decisions.
func (d *Decision) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDecision, b)
	}
	parsed, err := ParseDecision(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML rejects unknown decisions.
func (d *Decision) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("%w: line %d", ErrInvalidDecision, node.Line)
	}
	parsed, err := ParseDecision(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// #endregion decision

// #region bypass-rate
// BypassRate is the fraction of decisions that avoided the model call.
// An empty slice yields 0.
func BypassRate(decisions []Decision) float64 {
	if len(decisions) == 0 {
		return 0
	}
	n := 0
	for _, d := range decisions {
		if d.IsBypass() {
			n++
		}
	}
	return float64(n) / float64(len(decisions))
}

// #endregion bypass-rate
