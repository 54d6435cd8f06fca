// Package app assembles a webpilot runtime from a validated configuration.
//
// Both binaries share this wiring: browser sessions, the tool registry, the
// LLM planner and evaluator, the orchestrator and the task manager.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/agent/prompts"
	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/tasks"
	"github.com/entrhq/webpilot/pkg/tools/browser"
)

var appLog *logging.Logger

func init() {
	var err error
	appLog, err = logging.NewLogger("app")
	if err != nil {
		appLog.Warnf("Failed to initialize app logger, using stderr fallback: %v", err)
	}
}

// App is a running webpilot runtime.
type App struct {
	Config   *config.Config
	Sessions *browser.SessionManager
	Manager  *tasks.Manager
}

// New builds the runtime and starts the browser driver.
func New(cfg *config.Config) (*App, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New()
	if err != nil {
		// CountTokens falls back to an estimate on a nil tokenizer
		appLog.Warnf("Failed to load tokenizer, estimating history tokens: %v", err)
	}

	p, evaluator, err := NewPlanning(cfg, provider, registry.Tools(), tok)
	if err != nil {
		return nil, err
	}

	sessions := NewSessions(cfg)
	if err := sessions.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to start browser driver: %w", err)
	}

	orchestrator := agent.NewOrchestrator(sessions, registry, p,
		agent.WithGoalEvaluator(evaluator),
		agent.WithFailureThreshold(cfg.Agent.FailureThreshold),
		agent.WithStepDelay(cfg.Agent.StepDelay),
	)

	manager, err := NewManager(cfg, orchestrator)
	if err != nil {
		_ = sessions.Shutdown()
		return nil, err
	}

	appLog.Infof("Runtime ready: browser=%s model=%s max_concurrent=%d admission=%s evaluator=%s",
		cfg.Browser.Type, cfg.LLM.Model, cfg.Tasks.MaxConcurrent, cfg.Tasks.Admission, cfg.LLM.Evaluator)

	return &App{Config: cfg, Sessions: sessions, Manager: manager}, nil
}

// Close stops all runs and then the browser driver.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Manager.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("task manager shutdown: %w", err))
	}
	if err := a.Sessions.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("browser shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// NewSessions creates the browser session manager. One session is allowed
// per concurrent task.
func NewSessions(cfg *config.Config) *browser.SessionManager {
	sessions := browser.NewSessionManager(browser.SessionOptions{
		BrowserType: cfg.Browser.Type,
		Headless:    cfg.Browser.Headless,
		Viewport: &browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Browser.DefaultTimeout,
		Limits: browser.ObserveLimits{
			MaxElements:  cfg.Observation.MaxElements,
			PreviewChars: cfg.Observation.PreviewChars,
		},
	})
	sessions.SetMaxSessions(cfg.Tasks.MaxConcurrent)
	return sessions
}

// NewRegistry creates the built-in browser tools with the configured URL
// policy and timeouts.
func NewRegistry(cfg *config.Config) (*tools.Registry, error) {
	policy, err := tools.NewURLPolicy(cfg.Browser.AllowedURLs, cfg.Browser.DeniedURLs)
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewDefaultRegistry(tools.Options{
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		ActionTimeout:     cfg.Browser.ActionTimeout,
		Policy:            policy,
		ScreenshotDir:     cfg.Browser.ScreenshotDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	return registry, nil
}

// NewProvider creates the OpenAI-compatible model client.
func NewProvider(cfg *config.Config) (*openai.Provider, error) {
	opts := []openai.ProviderOption{
		openai.WithModel(cfg.LLM.Model),
		openai.WithTemperature(cfg.LLM.Temperature),
		openai.WithMaxTokens(cfg.LLM.MaxTokens),
		openai.WithRetry(cfg.LLM.RetryAttempts, 0),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}

	provider, err := openai.NewProvider(cfg.LLM.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

// NewPlanning builds the planner and the goal evaluator for the configured
// evaluator mode. The planner is wrapped in a plan cache unless
// llm.cache_size is 0.
func NewPlanning(cfg *config.Config, provider llm.Provider, toolsList []tools.Tool, tok *tokenizer.Tokenizer) (planner.Planner, planner.GoalEvaluator, error) {
	builder := prompts.NewPromptBuilder().
		WithTools(toolsList).
		WithHistoryWindow(cfg.Agent.HistoryWindow).
		WithTokenBudget(tok, cfg.LLM.HistoryTokenBudget)

	var p planner.Planner = planner.NewLLMPlanner(provider,
		planner.WithPromptBuilder(builder),
		planner.WithPlanTimeout(cfg.LLM.PlanTimeout),
	)
	if cfg.LLM.CacheSize > 0 {
		cached, err := planner.NewCachingPlanner(p, cfg.LLM.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		p = cached
	}

	var evaluator planner.GoalEvaluator
	switch cfg.LLM.Evaluator {
	case config.EvaluatorLLM:
		evaluator = planner.NewLLMEvaluator(provider, builder, cfg.LLM.PlanTimeout)
	case config.EvaluatorHeuristic:
		evaluator = planner.NewHeuristicEvaluator()
	case config.EvaluatorHybrid:
		evaluator = planner.FirstOf(
			planner.NewHeuristicEvaluator(),
			planner.NewLLMEvaluator(provider, builder, cfg.LLM.PlanTimeout),
		)
	default:
		return nil, nil, fmt.Errorf("unknown evaluator mode %q", cfg.LLM.Evaluator)
	}

	return p, evaluator, nil
}

// NewManager creates the task manager with the configured gate.
func NewManager(cfg *config.Config, runner tasks.Runner) (*tasks.Manager, error) {
	gate, err := tasks.NewGate(cfg.Tasks.MaxConcurrent, cfg.Tasks.Admission)
	if err != nil {
		return nil, err
	}
	return tasks.NewManager(runner,
		tasks.WithGate(gate),
		tasks.WithRetention(cfg.Tasks.Retention),
		tasks.WithRequestDefaults(cfg.Agent.MaxIterations, cfg.Agent.TimeoutSeconds),
	), nil
}
