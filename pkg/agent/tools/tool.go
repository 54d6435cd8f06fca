package tools

import (
	"context"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

// Tool is one action the planner can choose. Tools are looked up by name,
// their parameters are validated against Params before Execute is called,
// and Execute runs against the session bound to the current task run.
//
// Example plan selecting a tool:
//
//	{
//	  "reasoning": "The search box is visible",
//	  "tool_name": "type",
//	  "parameters": {"selector": "input[name='q']", "text": "golang"}
//	}
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "navigate")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Params describes the accepted parameters
	Params() []ParamSpec

	// Timeout bounds a single Execute call; zero means unbounded
	Timeout() time.Duration

	// Execute runs the tool with validated parameters
	Execute(ctx context.Context, session browser.Session, params Params) (*Result, error)

	// IsLoopBreaking indicates whether a successful call ends the task run.
	// Loop-breaking tools (like task_completion) signal that the planner
	// considers the goal reached.
	IsLoopBreaking() bool
}

// ParamValidator is an optional interface for tools that check parameter
// values beyond their declared types.
type ParamValidator interface {
	ValidateParams(params Params) error
}

// Result is the outcome of a tool execution.
type Result struct {
	// Output is the main result message
	Output string

	// Observation is set by tools that already read the page, so the
	// caller does not need to observe again
	Observation *types.Observation

	// Metadata holds optional structured details
	Metadata map[string]interface{}
}

// Schema returns the JSON schema for a tool's parameters.
func Schema(t Tool) map[string]interface{} {
	properties := make(map[string]interface{}, len(t.Params()))
	var required []string
	for _, p := range t.Params() {
		properties[p.Name] = map[string]interface{}{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return BaseToolSchema(properties, required)
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
