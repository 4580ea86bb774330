// Package guardrails holds time budget helpers for tracker runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a single tracker run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall budget for retrieving and writing one tracker
	Run time.Duration

	// Retrieve caps the adapter step
	Retrieve time.Duration

	// Write caps the sink step
	Write time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForRetrieve returns a sub context for the retrieve phase
func ForRetrieve(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Retrieve)
}

// ForWrite returns a sub context for the write phase
func ForWrite(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Write)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder, never extending the parent.
// d <= 0 returns a cancelable child inheriting the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
