package agent

import "github.com/entrhq/webpilot/pkg/types"

// Observer receives progress from a running loop. Both callbacks run on the
// loop goroutine and are given snapshots that the observer may keep.
// Implementations must not block.
type Observer interface {
	// StepCompleted is called after each step is appended.
	StepCompleted(snapshot *types.TaskRun, step types.Step)

	// RunFinished is called once with the terminal snapshot.
	RunFinished(snapshot *types.TaskRun)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStep   func(snapshot *types.TaskRun, step types.Step)
	OnFinish func(snapshot *types.TaskRun)
}

// StepCompleted implements Observer.
func (f ObserverFuncs) StepCompleted(snapshot *types.TaskRun, step types.Step) {
	if f.OnStep != nil {
		f.OnStep(snapshot, step)
	}
}

// RunFinished implements Observer.
func (f ObserverFuncs) RunFinished(snapshot *types.TaskRun) {
	if f.OnFinish != nil {
		f.OnFinish(snapshot)
	}
}
