package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/types"
)

const (
	// DefaultHistoryWindow is how many recent steps the planner sees
	DefaultHistoryWindow = 5

	maxResultChars = 300
)

// PromptBuilder constructs planner and evaluator prompts.
type PromptBuilder struct {
	tools         []tools.Tool
	historyWindow int
	tokenBudget   int
	tokenizer     *tokenizer.Tokenizer
}

// NewPromptBuilder creates a new prompt builder with default settings
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		tools:         []tools.Tool{},
		historyWindow: DefaultHistoryWindow,
	}
}

// WithTools sets the tools listed in the system prompt
func (pb *PromptBuilder) WithTools(toolsList []tools.Tool) *PromptBuilder {
	pb.tools = toolsList
	return pb
}

// WithHistoryWindow sets how many recent steps are included
func (pb *PromptBuilder) WithHistoryWindow(n int) *PromptBuilder {
	if n > 0 {
		pb.historyWindow = n
	}
	return pb
}

// WithTokenBudget caps the tokens spent on step history. Oldest steps are
// dropped first; the most recent step is always kept. A nil tokenizer
// falls back to a character estimate.
func (pb *PromptBuilder) WithTokenBudget(tok *tokenizer.Tokenizer, budget int) *PromptBuilder {
	pb.tokenizer = tok
	pb.tokenBudget = budget
	return pb
}

// BuildSystemPrompt assembles the planner system prompt.
func (pb *PromptBuilder) BuildSystemPrompt() string {
	var builder strings.Builder

	builder.WriteString(SystemCapabilitiesPrompt)
	builder.WriteString("\n\n")
	builder.WriteString(AgentLoopPrompt)
	builder.WriteString("\n\n")

	if len(pb.tools) > 0 {
		builder.WriteString("<available_tools>\n")
		builder.WriteString(FormatToolSchemas(pb.tools))
		builder.WriteString("</available_tools>\n\n")
	}

	builder.WriteString(ResponseFormatPrompt)
	return builder.String()
}

// BuildPlanMessages creates the messages for one planning call.
func (pb *PromptBuilder) BuildPlanMessages(goal string, obs *types.Observation, history []types.Step) []*types.Message {
	return []*types.Message{
		types.NewSystemMessage(pb.BuildSystemPrompt()),
		types.NewUserMessage(pb.buildContext(goal, obs, history) + "\nWhat is the next action?"),
	}
}

// BuildEvaluatorMessages creates the messages for a goal judgement.
func (pb *PromptBuilder) BuildEvaluatorMessages(goal string, obs *types.Observation, history []types.Step) []*types.Message {
	return []*types.Message{
		types.NewSystemMessage(EvaluatorSystemPrompt),
		types.NewUserMessage(pb.buildContext(goal, obs, history) + "\nIs the goal achieved? Answer YES or NO."),
	}
}

func (pb *PromptBuilder) buildContext(goal string, obs *types.Observation, history []types.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<goal>\n%s\n</goal>\n\n", goal)
	fmt.Fprintf(&b, "<current_page>\n%s\n</current_page>\n\n", tools.FormatObservation(obs))

	b.WriteString("<recent_actions>\n")
	lines := pb.HistoryLines(history)
	if len(lines) == 0 {
		b.WriteString("No previous actions\n")
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("</recent_actions>\n")
	return b.String()
}

// HistoryLines formats the most recent steps, oldest first, honouring the
// history window and token budget.
func (pb *PromptBuilder) HistoryLines(history []types.Step) []string {
	start := 0
	if pb.historyWindow > 0 && len(history) > pb.historyWindow {
		start = len(history) - pb.historyWindow
	}

	lines := make([]string, 0, len(history)-start)
	for _, step := range history[start:] {
		lines = append(lines, FormatStep(step))
	}

	if pb.tokenBudget <= 0 {
		return lines
	}
	total := 0
	for _, l := range lines {
		total += pb.tokenizer.CountTokens(l)
	}
	for len(lines) > 1 && total > pb.tokenBudget {
		total -= pb.tokenizer.CountTokens(lines[0])
		lines = lines[1:]
	}
	return lines
}

// FormatStep renders a step as one history line.
func FormatStep(step types.Step) string {
	action := "(no valid plan)"
	if step.ToolCall != nil {
		params, err := json.Marshal(step.ToolCall.Parameters)
		if err != nil || step.ToolCall.Parameters == nil {
			params = []byte("{}")
		}
		action = fmt.Sprintf("%s %s", step.ToolCall.ToolName, params)
	}

	if step.Success {
		return fmt.Sprintf("Step %d: %s -> OK: %s", step.Index, action, truncate(step.Result, maxResultChars))
	}
	if step.Error != nil {
		return fmt.Sprintf("Step %d: %s -> FAILED (%s): %s", step.Index, action, step.Error.Kind, truncate(step.Error.Message, maxResultChars))
	}
	return fmt.Sprintf("Step %d: %s -> FAILED", step.Index, action)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
