package tasks

import "errors"

var (
	// ErrBusy is returned by Submit when every session slot is taken and
	// the admission policy rejects overflow.
	ErrBusy = errors.New("all browser sessions are busy")

	// ErrTaskNotFound is returned for ids the registry does not know.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskActive is returned when cleaning up a run that is still going.
	ErrTaskActive = errors.New("task is still running")

	// ErrShuttingDown is returned by Submit after Shutdown has begun.
	ErrShuttingDown = errors.New("task manager is shutting down")
)
