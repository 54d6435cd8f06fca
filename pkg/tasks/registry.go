package tasks

import (
	"sync"

	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultRetention is the number of finished runs kept for inspection.
const DefaultRetention = 10

// Registry maps task ids to the latest snapshot of their run.
//
// Entries are replaced wholesale and never modified in place, so readers
// never observe a half-written run. Once a terminal snapshot is stored the
// entry is frozen: later writes for that id are ignored. Only terminal
// entries are evicted, oldest first, when more than the retention limit
// exist.
type Registry struct {
	mu        sync.RWMutex
	runs      map[string]*types.TaskRun
	order     []string
	retention int
	onEvict   func(id string)
}

// NewRegistry creates a registry keeping at most retention finished runs.
// onEvict, when set, is called with the id of every evicted run.
func NewRegistry(retention int, onEvict func(id string)) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		runs:      make(map[string]*types.TaskRun),
		retention: retention,
		onEvict:   onEvict,
	}
}

// Put stores a snapshot of run. It reports false when the entry was
// already terminal and the write was dropped.
func (r *Registry) Put(run *types.TaskRun) bool {
	snapshot := run.Clone()

	r.mu.Lock()
	current, exists := r.runs[snapshot.ID]
	if exists && current.Status.IsTerminal() {
		r.mu.Unlock()
		return false
	}
	if !exists {
		r.order = append(r.order, snapshot.ID)
	}
	r.runs[snapshot.ID] = snapshot

	var evicted []string
	if snapshot.Status.IsTerminal() {
		evicted = r.evictLocked()
	}
	r.mu.Unlock()

	if r.onEvict != nil {
		for _, id := range evicted {
			r.onEvict(id)
		}
	}
	return true
}

// Get returns a snapshot of the run with the given id.
func (r *Registry) Get(id string) (*types.TaskRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, false
	}
	return run.Clone(), true
}

// List returns snapshots of all runs in submission order.
func (r *Registry) List() []*types.TaskRun {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.TaskRun, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.runs[id].Clone())
	}
	return out
}

// Remove deletes a finished run. It returns ErrTaskNotFound for unknown
// ids and ErrTaskActive for runs that have not reached a terminal status.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return ErrTaskNotFound
	}
	if !run.Status.IsTerminal() {
		return ErrTaskActive
	}
	r.deleteLocked(id)
	return nil
}

// Len returns the number of stored runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

func (r *Registry) evictLocked() []string {
	terminal := 0
	for _, id := range r.order {
		if r.runs[id].Status.IsTerminal() {
			terminal++
		}
	}

	var evicted []string
	for i := 0; i < len(r.order) && terminal > r.retention; {
		id := r.order[i]
		if !r.runs[id].Status.IsTerminal() {
			i++
			continue
		}
		r.deleteLocked(id)
		evicted = append(evicted, id)
		terminal--
	}
	return evicted
}

func (r *Registry) deleteLocked(id string) {
	delete(r.runs, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
