package types

import "time"

// Status is the lifecycle state of a TaskRun.
type Status string

const (
	StatusIdle      Status = "idle"      // StatusIdle is the state before a task is accepted.
	StatusRunning   Status = "running"   // StatusRunning means the loop is iterating.
	StatusCompleted Status = "completed" // StatusCompleted means the goal was reached.
	StatusFailed    Status = "failed"    // StatusFailed means the run ended with an error.
	StatusStopped   Status = "stopped"   // StatusStopped means a stop request was honoured.
)

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// ToolCall is one action proposed by the planner.
type ToolCall struct {
	ToolName        string                 `json:"tool_name"`
	Parameters      map[string]interface{} `json:"parameters"`
	Reasoning       string                 `json:"reasoning"`
	ExpectedOutcome string                 `json:"expected_outcome,omitempty"`
}

// Step records one iteration of the loop. Steps are append-only.
type Step struct {
	Index       int           `json:"index"`
	ToolCall    *ToolCall     `json:"tool_call,omitempty"`
	Success     bool          `json:"success"`
	Result      string        `json:"result,omitempty"`
	Error       *Error        `json:"error,omitempty"`
	Observation *Observation  `json:"observation,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// TaskRun is the full record of one execution. The owning loop is its
// only writer; everybody else reads snapshots produced by Clone.
type TaskRun struct {
	ID          string      `json:"id"`
	Request     TaskRequest `json:"request"`
	Status      Status      `json:"status"`
	Steps       []Step      `json:"steps"`
	StartedAt   time.Time   `json:"started_at"`
	EndedAt     *time.Time  `json:"ended_at,omitempty"`
	Error       *Error      `json:"error,omitempty"`
	FinalResult string      `json:"final_result,omitempty"`
}

// NewTaskRun creates a running TaskRun for an accepted request.
func NewTaskRun(id string, req TaskRequest, startedAt time.Time) *TaskRun {
	return &TaskRun{
		ID:        id,
		Request:   req,
		Status:    StatusRunning,
		Steps:     make([]Step, 0, req.MaxIterations),
		StartedAt: startedAt,
	}
}

// Clone returns a snapshot of r that shares nothing mutable with it.
// Step contents are immutable once appended, so the step values are copied
// but their observation and tool call pointers are shared.
func (r *TaskRun) Clone() *TaskRun {
	if r == nil {
		return nil
	}
	c := *r
	c.Steps = make([]Step, len(r.Steps))
	copy(c.Steps, r.Steps)
	if r.EndedAt != nil {
		ended := *r.EndedAt
		c.EndedAt = &ended
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// CurrentStep returns the index of the last recorded step (0 before any).
func (r *TaskRun) CurrentStep() int {
	return len(r.Steps)
}

// ExecutionTime returns the elapsed run time, up to now for live runs.
func (r *TaskRun) ExecutionTime(now time.Time) time.Duration {
	if r.EndedAt != nil {
		return r.EndedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}
