// Package planner turns a goal and the current page into the next tool call,
// and judges whether a goal has been reached.
package planner

import (
	"context"
	"time"

	"github.com/entrhq/webpilot/pkg/agent/prompts"
	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/parser"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultPlanTimeout bounds a single model call.
const DefaultPlanTimeout = 60 * time.Second

var plannerLog *logging.Logger

func init() {
	var err error
	plannerLog, err = logging.NewLogger("planner")
	if err != nil {
		plannerLog.Warnf("Failed to initialize planner logger, using stderr fallback: %v", err)
	}
}

// Planner proposes the next action for a goal. Implementations must not
// mutate observation or history.
type Planner interface {
	Plan(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (*types.ToolCall, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (*types.ToolCall, error)

// Plan calls f.
func (f PlannerFunc) Plan(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (*types.ToolCall, error) {
	return f(ctx, goal, observation, history)
}

// LLMPlanner asks a language model for the next tool call.
type LLMPlanner struct {
	provider llm.Provider
	prompts  *prompts.PromptBuilder
	timeout  time.Duration
}

// LLMPlannerOption configures an LLMPlanner.
type LLMPlannerOption func(*LLMPlanner)

// WithPlanTimeout bounds each model call. Zero disables the bound.
func WithPlanTimeout(d time.Duration) LLMPlannerOption {
	return func(p *LLMPlanner) {
		p.timeout = d
	}
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(b *prompts.PromptBuilder) LLMPlannerOption {
	return func(p *LLMPlanner) {
		p.prompts = b
	}
}

// NewLLMPlanner creates a planner backed by provider.
func NewLLMPlanner(provider llm.Provider, opts ...LLMPlannerOption) *LLMPlanner {
	p := &LLMPlanner{
		provider: provider,
		prompts:  prompts.NewPromptBuilder(),
		timeout:  DefaultPlanTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan implements Planner. An unreachable model or a response that is not
// a tool call is a planning_error.
func (p *LLMPlanner) Plan(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (*types.ToolCall, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := p.prompts.BuildPlanMessages(goal, observation, history)
	reply, err := p.provider.Complete(ctx, messages)
	if err != nil {
		return nil, types.WrapError(types.ErrorKindPlanning, err, "planner unavailable")
	}

	thinking, answer := reply.Thinking, reply.Content
	if thinking == "" {
		thinking, answer = parser.SplitThinking(reply.Content)
	}

	call, err := tools.ParseToolCall(answer)
	if err != nil {
		plannerLog.Warnf("Unparsable plan from %s: %v (response: %.200q)", p.provider.GetModel(), err, reply.Content)
		return nil, err
	}
	if call.Reasoning == "" {
		call.Reasoning = thinking
	}

	plannerLog.Debugf("Planned %s (%s)", call.ToolName, call.Reasoning)
	return call, nil
}
