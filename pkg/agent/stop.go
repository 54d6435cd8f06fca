package agent

import "sync"

// StopSignal is a one-shot cooperative stop request. The loop checks it at
// iteration boundaries only; a tool that is already running finishes first.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unsignalled StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop requests the loop to stop. Calling it more than once is a no-op.
func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel that is closed once Stop has been called.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}

// Stopped reports whether Stop has been called. A nil signal is never stopped.
func (s *StopSignal) Stopped() bool {
	if s == nil {
		return false
	}
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
