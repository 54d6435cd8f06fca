package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure recorded on a Step or a TaskRun.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation_error"     // ErrorKindValidation marks a malformed request or tool parameters.
	ErrorKindPlanning      ErrorKind = "planning_error"       // ErrorKindPlanning marks an unreachable planner or unparsable plan.
	ErrorKindToolNotFound  ErrorKind = "tool_not_found"       // ErrorKindToolNotFound marks a plan naming an unknown tool.
	ErrorKindToolExecution ErrorKind = "tool_execution_error" // ErrorKindToolExecution marks a failure raised while a tool ran.
	ErrorKindTimeout       ErrorKind = "timeout_error"        // ErrorKindTimeout marks an exhausted iteration or wall-clock budget.
	ErrorKindCancellation  ErrorKind = "cancellation_error"   // ErrorKindCancellation marks an observed stop request.
)

// Error is the structured error carried by steps and runs. It serializes
// as {kind, message} and keeps the underlying cause for errors.Is/As.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// NewError creates an Error of the given kind with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error of the given kind around err.
// The message is taken from err when msg is empty.
func WrapError(kind ErrorKind, err error, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	} else if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError returns the *Error in err's chain, or wraps err with the fallback kind.
func AsError(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(fallback, err, "")
}
