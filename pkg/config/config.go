// Package config holds the YAML configuration for webpilot processes.
//
// A configuration starts from Default, is overlaid with an optional YAML
// file (Load) and finally with environment variables (ApplyEnv). Validate
// must pass before the configuration is handed to the runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Admission policies for a full concurrency gate.
const (
	AdmissionReject = "reject"
	AdmissionQueue  = "queue"
)

// Goal evaluator modes.
const (
	EvaluatorLLM       = "llm"
	EvaluatorHeuristic = "heuristic"
	EvaluatorHybrid    = "hybrid"
)

// Config is the root configuration.
type Config struct {
	Agent       AgentConfig       `yaml:"agent" json:"agent"`
	Browser     BrowserConfig     `yaml:"browser" json:"browser"`
	Observation ObservationConfig `yaml:"observation" json:"observation"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Tasks       TasksConfig       `yaml:"tasks" json:"tasks"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// AgentConfig controls the orchestrator loop.
type AgentConfig struct {
	// FailureThreshold is the number of consecutive failed steps that ends a run
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`

	// StepDelay is slept between iterations to let pages settle
	StepDelay time.Duration `yaml:"step_delay" json:"step_delay"`

	// Defaults applied to requests that leave budgets unset
	MaxIterations  int `yaml:"max_iterations" json:"max_iterations"`
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// HistoryWindow is the number of recent steps shown to the planner
	HistoryWindow int `yaml:"history_window" json:"history_window"`
}

// BrowserConfig controls browser sessions.
type BrowserConfig struct {
	Type              string        `yaml:"type" json:"type"` // chromium, firefox or webkit
	Headless          bool          `yaml:"headless" json:"headless"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	DefaultTimeout    time.Duration `yaml:"default_timeout" json:"default_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout" json:"action_timeout"`

	// URL glob patterns checked by the navigate tool. An empty allow list allows everything.
	AllowedURLs []string `yaml:"allowed_urls" json:"allowed_urls"`
	DeniedURLs  []string `yaml:"denied_urls" json:"denied_urls"`

	// ScreenshotDir receives screenshot tool output when set
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`
}

// ObservationConfig caps what a single observation carries.
type ObservationConfig struct {
	MaxElements  int `yaml:"max_elements" json:"max_elements"`
	PreviewChars int `yaml:"preview_chars" json:"preview_chars"`
}

// LLMConfig configures the planning backend.
type LLMConfig struct {
	Model       string  `yaml:"model" json:"model"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"-"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`

	PlanTimeout   time.Duration `yaml:"plan_timeout" json:"plan_timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`

	// CacheSize is the number of memoized plans; 0 disables the cache
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// HistoryTokenBudget bounds the history section of the planner prompt
	HistoryTokenBudget int `yaml:"history_token_budget" json:"history_token_budget"`

	// Evaluator selects the goal evaluator: llm, heuristic or hybrid
	Evaluator string `yaml:"evaluator" json:"evaluator"`
}

// TasksConfig controls admission and retention of task runs.
type TasksConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
	Admission     string `yaml:"admission" json:"admission"`
	Retention     int    `yaml:"retention" json:"retention"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			FailureThreshold: 3,
			StepDelay:        time.Second,
			MaxIterations:    10,
			TimeoutSeconds:   300,
			HistoryWindow:    5,
		},
		Browser: BrowserConfig{
			Type:              "chromium",
			Headless:          true,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			DefaultTimeout:    30 * time.Second,
			NavigationTimeout: 30 * time.Second,
			ActionTimeout:     10 * time.Second,
		},
		Observation: ObservationConfig{
			MaxElements:  10,
			PreviewChars: 500,
		},
		LLM: LLMConfig{
			Model:              "gpt-4o",
			Temperature:        0.1,
			MaxTokens:          1000,
			PlanTimeout:        60 * time.Second,
			RetryAttempts:      3,
			CacheSize:          256,
			HistoryTokenBudget: 1500,
			Evaluator:          EvaluatorHybrid,
		},
		Tasks: TasksConfig{
			MaxConcurrent: 1,
			Admission:     AdmissionReject,
			Retention:     10,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the runtime cannot honour.
func (c *Config) Validate() error {
	if c.Agent.FailureThreshold < 1 {
		return fmt.Errorf("agent.failure_threshold must be at least 1")
	}
	if c.Agent.StepDelay < 0 {
		return fmt.Errorf("agent.step_delay cannot be negative")
	}
	if c.Agent.HistoryWindow < 0 {
		return fmt.Errorf("agent.history_window cannot be negative")
	}

	switch c.Browser.Type {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("invalid browser.type: %s (must be 'chromium', 'firefox' or 'webkit')", c.Browser.Type)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive")
	}
	if c.Browser.DefaultTimeout <= 0 || c.Browser.NavigationTimeout <= 0 || c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser timeouts must be positive")
	}

	if c.Observation.MaxElements < 1 {
		return fmt.Errorf("observation.max_elements must be at least 1")
	}
	if c.Observation.PreviewChars < 1 {
		return fmt.Errorf("observation.preview_chars must be at least 1")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.PlanTimeout <= 0 {
		return fmt.Errorf("llm.plan_timeout must be positive")
	}
	if c.LLM.CacheSize < 0 || c.LLM.RetryAttempts < 0 || c.LLM.HistoryTokenBudget < 0 {
		return fmt.Errorf("llm cache_size, retry_attempts and history_token_budget cannot be negative")
	}
	switch c.LLM.Evaluator {
	case EvaluatorLLM, EvaluatorHeuristic, EvaluatorHybrid:
	default:
		return fmt.Errorf("invalid llm.evaluator: %s (must be 'llm', 'heuristic' or 'hybrid')", c.LLM.Evaluator)
	}

	if c.Tasks.MaxConcurrent < 1 {
		return fmt.Errorf("tasks.max_concurrent must be at least 1")
	}
	if c.Tasks.Admission != AdmissionReject && c.Tasks.Admission != AdmissionQueue {
		return fmt.Errorf("invalid tasks.admission: %s (must be 'reject' or 'queue')", c.Tasks.Admission)
	}
	if c.Tasks.Retention < 0 {
		return fmt.Errorf("tasks.retention cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Logging.Level)
	}

	return nil
}
