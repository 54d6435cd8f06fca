package planner

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/agent/prompts"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/parser"
	"github.com/entrhq/webpilot/pkg/types"
)

// GoalEvaluator decides whether the goal is satisfied by the latest
// observation. It must not have side effects.
type GoalEvaluator interface {
	Evaluate(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (bool, error)
}

// EvaluatorFunc adapts a function to the GoalEvaluator interface.
type EvaluatorFunc func(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (bool, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (bool, error) {
	return f(ctx, goal, observation, history)
}

// LLMEvaluator asks the model for a YES/NO judgement.
type LLMEvaluator struct {
	provider llm.Provider
	prompts  *prompts.PromptBuilder
	timeout  time.Duration
}

// NewLLMEvaluator creates a model-judged evaluator. A zero timeout means
// DefaultPlanTimeout.
func NewLLMEvaluator(provider llm.Provider, builder *prompts.PromptBuilder, timeout time.Duration) *LLMEvaluator {
	if builder == nil {
		builder = prompts.NewPromptBuilder()
	}
	if timeout <= 0 {
		timeout = DefaultPlanTimeout
	}
	return &LLMEvaluator{provider: provider, prompts: builder, timeout: timeout}
}

// Evaluate implements GoalEvaluator.
func (e *LLMEvaluator) Evaluate(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.provider.Complete(ctx, e.prompts.BuildEvaluatorMessages(goal, observation, history))
	if err != nil {
		return false, types.WrapError(types.ErrorKindPlanning, err, "goal evaluation failed")
	}
	answer := reply.Content
	if reply.Thinking == "" {
		_, answer = parser.SplitThinking(answer)
	}
	return isAffirmative(answer), nil
}

func isAffirmative(answer string) bool {
	fields := strings.Fields(strings.ToUpper(answer))
	if len(fields) == 0 {
		return false
	}
	return strings.Trim(fields[0], ".,!*:\"'`") == "YES"
}

var (
	goalURLRegex    = regexp.MustCompile(`https?://[^\s"'<>()]+`)
	goalPhraseRegex = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
)

// HeuristicEvaluator is a deterministic evaluator. It checks the last URL
// mentioned in the goal against the page URL, and requires every quoted
// phrase in the goal to appear in the page title or text preview. A goal
// with neither is never judged complete.
type HeuristicEvaluator struct{}

// NewHeuristicEvaluator creates a heuristic evaluator
func NewHeuristicEvaluator() *HeuristicEvaluator {
	return &HeuristicEvaluator{}
}

// Evaluate implements GoalEvaluator.
func (HeuristicEvaluator) Evaluate(_ context.Context, goal string, observation *types.Observation, _ []types.Step) (bool, error) {
	if observation == nil {
		return false, nil
	}

	urls := goalURLRegex.FindAllString(goal, -1)
	phrases := quotedPhrases(goal)
	if len(urls) == 0 && len(phrases) == 0 {
		return false, nil
	}

	if len(urls) > 0 {
		want := strings.TrimRight(urls[len(urls)-1], ".,;:!?")
		if normalizeURL(want) != normalizeURL(observation.URL) {
			return false, nil
		}
	}

	haystack := strings.ToLower(observation.Title + " " + observation.TextPreview)
	for _, p := range phrases {
		if !strings.Contains(haystack, strings.ToLower(p)) {
			return false, nil
		}
	}
	return true, nil
}

func quotedPhrases(goal string) []string {
	var out []string
	for _, m := range goalPhraseRegex.FindAllStringSubmatch(goal, -1) {
		phrase := m[1]
		if phrase == "" {
			phrase = m[2]
		}
		phrase = strings.TrimSpace(phrase)
		// A quoted URL is already checked against the page URL
		if phrase == "" || goalURLRegex.FindString(phrase) == phrase {
			continue
		}
		out = append(out, phrase)
	}
	return out
}

// normalizeURL lowercases scheme and host, drops a leading "www.", the
// fragment and any trailing slash.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimRight(u.EscapedPath(), "/")
	s := strings.ToLower(u.Scheme) + "://" + host + path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}

// FirstOf combines evaluators: the goal is met as soon as one of them says
// so. An evaluator error counts as "not yet".
func FirstOf(evaluators ...GoalEvaluator) GoalEvaluator {
	return EvaluatorFunc(func(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (bool, error) {
		for _, e := range evaluators {
			if e == nil {
				continue
			}
			done, err := e.Evaluate(ctx, goal, observation, history)
			if err != nil {
				plannerLog.Warnf("Goal evaluator failed, treating as not complete: %v", err)
				continue
			}
			if done {
				return true, nil
			}
		}
		return false, nil
	})
}
