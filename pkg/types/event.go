package types

import "time"

// TaskEventType defines the type of event published while a task runs.
type TaskEventType string

const (
	EventTypeTaskStarted  TaskEventType = "task_started"  // EventTypeTaskStarted indicates the loop has begun.
	EventTypeStepComplete TaskEventType = "step_complete" // EventTypeStepComplete indicates a step was appended.
	EventTypeTaskFinished TaskEventType = "task_finished" // EventTypeTaskFinished indicates a terminal status was reached.
)

// TaskEvent is one message on a task's event stream.
type TaskEvent struct {
	Type      TaskEventType `json:"type"`
	TaskID    string        `json:"task_id"`
	Status    Status        `json:"status"`
	Step      *Step         `json:"step,omitempty"`
	Error     *Error        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewTaskStartedEvent creates a task started event.
func NewTaskStartedEvent(taskID string) *TaskEvent {
	return &TaskEvent{
		Type:      EventTypeTaskStarted,
		TaskID:    taskID,
		Status:    StatusRunning,
		Timestamp: time.Now(),
	}
}

// NewStepEvent creates a step complete event carrying a copy of step.
func NewStepEvent(taskID string, step Step) *TaskEvent {
	return &TaskEvent{
		Type:      EventTypeStepComplete,
		TaskID:    taskID,
		Status:    StatusRunning,
		Step:      &step,
		Timestamp: time.Now(),
	}
}

// NewTaskFinishedEvent creates a terminal event for run.
func NewTaskFinishedEvent(run *TaskRun) *TaskEvent {
	return &TaskEvent{
		Type:      EventTypeTaskFinished,
		TaskID:    run.ID,
		Status:    run.Status,
		Error:     run.Error,
		Timestamp: time.Now(),
	}
}

// IsTerminal reports whether this is the last event of its stream.
func (e *TaskEvent) IsTerminal() bool {
	return e.Type == EventTypeTaskFinished
}
