package agent

import (
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/planner"
)

// Orchestrator defaults.
const (
	DefaultFailureThreshold = 3
	DefaultObserveTimeout   = 30 * time.Second
)

// Clock supplies the current time. Tests inject a fake to drive the
// wall-clock budget without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGoalEvaluator sets the evaluator consulted after successful steps.
// Without one, only a loop-breaking tool completes a run.
func WithGoalEvaluator(e planner.GoalEvaluator) Option {
	return func(o *Orchestrator) {
		o.evaluator = e
	}
}

// WithFailureThreshold sets how many consecutive failed steps fail the run.
func WithFailureThreshold(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.failureThreshold = n
		}
	}
}

// WithStepDelay sets a pause between iterations.
func WithStepDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.stepDelay = d
		}
	}
}

// WithObserveTimeout bounds each observation of the page.
func WithObserveTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.observeTimeout = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}
