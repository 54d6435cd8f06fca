package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Admission policies applied when every slot is taken.
const (
	PolicyReject = "reject"
	PolicyQueue  = "queue"
)

// Gate bounds the number of runs holding a browser session at once.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	policy   string
	inUse    atomic.Int64
}

// NewGate creates a gate with capacity slots. An unknown policy is an error.
func NewGate(capacity int, policy string) (*Gate, error) {
	if capacity < 1 {
		capacity = 1
	}
	switch policy {
	case "":
		policy = PolicyReject
	case PolicyReject, PolicyQueue:
	default:
		return nil, fmt.Errorf("invalid admission policy: %s (must be '%s' or '%s')", policy, PolicyReject, PolicyQueue)
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		policy:   policy,
	}, nil
}

// Acquire takes a slot. Under the reject policy a full gate returns
// ErrBusy immediately; under the queue policy it waits for a slot or for
// ctx to be done.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.policy == PolicyQueue {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("waiting for a free session: %w", err)
		}
	} else if !g.sem.TryAcquire(1) {
		return ErrBusy
	}
	g.inUse.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (g *Gate) Release() {
	g.inUse.Add(-1)
	g.sem.Release(1)
}

// InUse returns the number of taken slots.
func (g *Gate) InUse() int {
	return int(g.inUse.Load())
}

// Capacity returns the number of slots.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Policy returns the admission policy.
func (g *Gate) Policy() string {
	return g.policy
}
