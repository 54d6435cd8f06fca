package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

// Registry maps tool names to tools. It is filled once at startup and then
// shared read-only by every task run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Validate resolves call to a tool and checks its parameters.
// It returns a tool_not_found error for unknown names and a
// validation_error for missing or mistyped parameters.
func (r *Registry) Validate(call *types.ToolCall) (Tool, Params, error) {
	if call == nil || call.ToolName == "" {
		return nil, nil, types.NewError(types.ErrorKindValidation, "tool call has no tool_name")
	}

	t, ok := r.Get(call.ToolName)
	if !ok {
		return nil, nil, types.NewError(types.ErrorKindToolNotFound, "unknown tool %q", call.ToolName)
	}

	params, err := normalizeParams(t.Name(), t.Params(), call.Parameters)
	if err != nil {
		return nil, nil, err
	}

	if v, ok := t.(ParamValidator); ok {
		if err := v.ValidateParams(params); err != nil {
			return nil, nil, types.AsError(err, types.ErrorKindValidation)
		}
	}
	return t, params, nil
}

// Bind returns a dispatcher that runs tools against session.
func (r *Registry) Bind(session browser.Session) *Dispatcher {
	return &Dispatcher{registry: r, session: session}
}

// Dispatcher executes validated tool calls against one session. Callers
// must not dispatch concurrently on the same dispatcher.
type Dispatcher struct {
	registry *Registry
	session  browser.Session
}

// Validate resolves and checks call, see Registry.Validate.
func (d *Dispatcher) Validate(call *types.ToolCall) (Tool, Params, error) {
	return d.registry.Validate(call)
}

// Dispatch runs t under its own timeout. Failures are returned as
// tool_execution_error unless the tool already classified them.
func (d *Dispatcher) Dispatch(ctx context.Context, t Tool, params Params) (*Result, error) {
	if timeout := t.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := t.Execute(ctx, d.session, params)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.WrapError(types.ErrorKindToolExecution, err,
				fmt.Sprintf("%s timed out after %s", t.Name(), t.Timeout()))
		}
		return nil, types.WrapError(types.ErrorKindToolExecution, err, t.Name())
	}
	if result == nil {
		result = &Result{}
	}
	return result, nil
}

// Execute validates and dispatches call in one go.
func (d *Dispatcher) Execute(ctx context.Context, call *types.ToolCall) (Tool, *Result, error) {
	t, params, err := d.Validate(call)
	if err != nil {
		return nil, nil, err
	}
	result, err := d.Dispatch(ctx, t, params)
	return t, result, err
}
