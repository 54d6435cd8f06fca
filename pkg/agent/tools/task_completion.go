package tools

import (
	"context"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
)

const taskCompletionToolName = "task_completion"

// TaskCompletionTool is a loop-breaking tool that lets the planner signal
// that the goal has been reached and report the final result.
type TaskCompletionTool struct{}

// NewTaskCompletionTool creates a new task completion tool
func NewTaskCompletionTool() *TaskCompletionTool {
	return &TaskCompletionTool{}
}

// Name returns the tool's identifier
func (t *TaskCompletionTool) Name() string {
	return taskCompletionToolName
}

// Description returns a description of what this tool does
func (t *TaskCompletionTool) Description() string {
	return "Signal that the goal has been achieved and report the final result. " +
		"Only use this when the current page shows the goal is satisfied."
}

// Params describes the tool's arguments
func (t *TaskCompletionTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "result", Type: ParamString, Required: true, Description: "Summary of what was achieved"},
	}
}

// Timeout returns zero: completion does not touch the browser
func (t *TaskCompletionTool) Timeout() time.Duration {
	return 0
}

// Execute returns the result unchanged
func (t *TaskCompletionTool) Execute(_ context.Context, _ browser.Session, params Params) (*Result, error) {
	return &Result{Output: params.String("result")}, nil
}

// IsLoopBreaking returns true because this tool terminates the task run
func (t *TaskCompletionTool) IsLoopBreaking() bool {
	return true
}
