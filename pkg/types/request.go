package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Request limits and defaults.
const (
	DefaultMaxIterations  = 10
	DefaultTimeoutSeconds = 300

	MaxGoalLength     = 1000
	MinIterations     = 1
	MaxIterations     = 50
	MinTimeoutSeconds = 30
	MaxTimeoutSeconds = 1800
)

// TaskRequest describes one goal to pursue. It is immutable once accepted.
type TaskRequest struct {
	Goal           string `json:"goal" yaml:"goal"`
	MaxIterations  int    `json:"max_iterations" yaml:"max_iterations"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// NewTaskRequest creates a request for goal with the default budgets.
func NewTaskRequest(goal string) TaskRequest {
	return TaskRequest{
		Goal:           goal,
		MaxIterations:  DefaultMaxIterations,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// WithDefaults returns a copy of r with zero budgets replaced by defaults.
func (r TaskRequest) WithDefaults() TaskRequest {
	if r.MaxIterations == 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	if r.TimeoutSeconds == 0 {
		r.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return r
}

// Validate checks the request bounds and returns a validation *Error.
func (r TaskRequest) Validate() error {
	if strings.TrimSpace(r.Goal) == "" {
		return NewError(ErrorKindValidation, "goal is required")
	}
	if n := utf8.RuneCountInString(r.Goal); n > MaxGoalLength {
		return NewError(ErrorKindValidation, "goal is %d characters, maximum is %d", n, MaxGoalLength)
	}
	if r.MaxIterations < MinIterations || r.MaxIterations > MaxIterations {
		return NewError(ErrorKindValidation, "max_iterations must be between %d and %d, got %d",
			MinIterations, MaxIterations, r.MaxIterations)
	}
	if r.TimeoutSeconds < MinTimeoutSeconds || r.TimeoutSeconds > MaxTimeoutSeconds {
		return NewError(ErrorKindValidation, "timeout_seconds must be between %d and %d, got %d",
			MinTimeoutSeconds, MaxTimeoutSeconds, r.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the wall-clock budget as a duration.
func (r TaskRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}
