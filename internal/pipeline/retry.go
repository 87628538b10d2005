package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// #region outcome
// Outcome classifies how an external call ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

// CallResult reports the final outcome of a retried call. Err is the last
// attempt's error and is never dropped on failure.
type CallResult struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Failed reports whether the call ended without success.
func (c CallResult) Failed() bool { return c.Outcome != OutcomeSuccess }

// Error describes a failed call including its attempt count.
func (c CallResult) Error() error {
	if !c.Failed() {
		return nil
	}
	return fmt.Errorf("%s after %d attempt(s): %w", c.Outcome, c.Attempts, c.Err)
}

// #endregion outcome

// #region policy
// RetryPolicy bounds calls to the backend and the guardrail.
type RetryPolicy struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"` // total attempts, including the first
	AttemptTimeout time.Duration `yaml:"attempt_timeout" json:"attempt_timeout"`
	Backoff        time.Duration `yaml:"backoff" json:"backoff"` // multiplied by the attempt number
}

// DefaultRetryPolicy allows 3 attempts of 30s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 30 * time.Second,
		Backoff:        200 * time.Millisecond,
	}
}

// Validate rejects a policy that would never attempt the call.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max_attempts must be >= 1", ErrInvalidConfig)
	}
	if p.AttemptTimeout < 0 || p.Backoff < 0 {
		return fmt.Errorf("%w: retry durations must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// #endregion policy

// #region call
// Call runs fn until it succeeds, MaxAttempts is reached or ctx ends. Each
// attempt gets its own AttemptTimeout.
func Call[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, CallResult) {
	var zero T
	res := CallResult{}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		res.Attempts = attempt

		actx, cancel := ctx, context.CancelFunc(func() {})
		if policy.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}
		v, err := fn(actx)
		cancel()

		if err == nil {
			res.Outcome = OutcomeSuccess
			res.Err = nil
			return v, res
		}
		res.Err = err
		res.Outcome = OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded) {
			res.Outcome = OutcomeTimeout
		}

		if ctx.Err() != nil || attempt == policy.MaxAttempts {
			break
		}
		if !sleep(ctx, policy.Backoff*time.Duration(attempt)) {
			break
		}
	}
	return zero, res
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// #endregion call
