package bench

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/SKDesing/aura-osint/go-preintel/internal/router"
	"github.com/SKDesing/aura-osint/go-preintel/internal/textnorm"
)

// Classifier is the part of the router the harness replays against.
type Classifier interface {
	Classify(ctx context.Context, in router.Input) router.Result
	Version() string
}

// #region harness
// Harness replays a labeled dataset through a classifier.
type Harness struct {
	classifier Classifier
	now        func() time.Time
}

// NewHarness returns a harness over c. now defaults to time.Now.
func NewHarness(c Classifier, now func() time.Time) *Harness {
	if now == nil {
		now = time.Now
	}
	return &Harness{classifier: c, now: now}
}

// Version reports the classifier's router version.
func (h *Harness) Version() string { return h.classifier.Version() }

// Run classifies every sample in order, timing each call. On cancellation
// it returns the outcomes gathered so far with ctx.Err().
func (h *Harness) Run(ctx context.Context, samples []Sample) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(samples))
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		text := textnorm.Normalize(s.Prompt)
		start := h.now()
		res := h.classifier.Classify(ctx, router.Input{Text: text})
		elapsed := h.now().Sub(start)

		outcomes = append(outcomes, Outcome{
			Sample:     s,
			Got:        res.Decision,
			Confidence: res.Confidence,
			Latency:    elapsed,
			Correct:    res.Decision == s.ExpectedDecision,
			Degraded:   res.Degraded,
		})
	}
	return outcomes, nil
}

// #endregion harness

// #region summarize
// Summarize aggregates outcomes and evaluates the gates in config.
func Summarize(outcomes []Outcome, config Config, routerVersion string) Report {
	rep := Report{
		Total:         len(outcomes),
		Confusion:     map[string]map[string]int{},
		RouterVersion: routerVersion,
	}

	decisions := make([]router.Decision, 0, len(outcomes))
	latencies := make([]float64, 0, len(outcomes))
	var confSum float64
	var withExpected, agreeing int
	for _, o := range outcomes {
		decisions = append(decisions, o.Got)
		latencies = append(latencies, ms(o.Latency))
		confSum += o.Confidence
		if o.Correct {
			rep.Correct++
		}
		if o.Degraded {
			rep.Degraded++
		}
		row := rep.Confusion[string(o.Sample.ExpectedDecision)]
		if row == nil {
			row = map[string]int{}
			rep.Confusion[string(o.Sample.ExpectedDecision)] = row
		}
		row[string(o.Got)]++

		if c := o.Sample.ExpectedConfidence; c != nil {
			withExpected++
			if math.Abs(o.Confidence-*c) <= config.ConfidenceDelta {
				agreeing++
			}
		}
	}

	if rep.Total > 0 {
		rep.Accuracy = float64(rep.Correct) / float64(rep.Total)
		rep.AvgConfidence = confSum / float64(rep.Total)
	}
	rep.BypassRate = router.BypassRate(decisions)
	rep.Latency = summarizeLatency(latencies)

	var failReasons []string
	addGate := func(g Gate, reason string) {
		rep.Gates = append(rep.Gates, g)
		if !g.Pass {
			failReasons = append(failReasons, reason)
		}
	}

	addGate(Gate{
		Name:      "accuracy",
		Value:     rep.Accuracy,
		Threshold: config.MinAccuracy,
		Pass:      rep.Total > 0 && rep.Accuracy >= config.MinAccuracy,
	}, fmt.Sprintf("accuracy %.4f below %.4f", rep.Accuracy, config.MinAccuracy))

	addGate(Gate{
		Name:      "bypass_rate",
		Value:     rep.BypassRate,
		Threshold: config.MinBypassRate,
		Pass:      rep.Total > 0 && rep.BypassRate >= config.MinBypassRate,
	}, fmt.Sprintf("bypass rate %.4f below %.4f", rep.BypassRate, config.MinBypassRate))

	maxAvg := ms(config.MaxAvgLatency)
	addGate(Gate{
		Name:      "avg_latency_ms",
		Value:     rep.Latency.Avg,
		Threshold: maxAvg,
		Pass:      rep.Latency.Avg < maxAvg,
	}, fmt.Sprintf("average latency %.3fms not below %.3fms", rep.Latency.Avg, maxAvg))

	// Informational: reported, never fails the run.
	if config.ConfidenceDelta > 0 && withExpected > 0 {
		share := float64(agreeing) / float64(withExpected)
		rep.Gates = append(rep.Gates, Gate{
			Name:      "confidence_agreement",
			Value:     share,
			Threshold: config.ConfidenceDelta,
			Pass:      agreeing == withExpected,
		})
	}

	rep.Passed = len(failReasons) == 0
	switch len(failReasons) {
	case 0:
		rep.Reason = "all gates passed"
	case 1:
		rep.Reason = "gate failed: " + failReasons[0]
	default:
		rep.Reason = fmt.Sprintf("%d gates failed: %s", len(failReasons), strings.Join(failReasons, "; "))
	}
	return rep
}

// summarizeLatency computes nearest-rank percentiles over ms values.
func summarizeLatency(values []float64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return Latency{
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
		Max: sorted[len(sorted)-1],
	}
}

func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// #endregion summarize
