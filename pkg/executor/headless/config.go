package headless

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/webpilot/pkg/types"
)

// Config represents the configuration for a headless run
type Config struct {
	// Goal is the natural language task for the agent
	Goal string `yaml:"goal" json:"goal"`

	// Budgets for the run; zero means the task manager default
	MaxIterations  int `yaml:"max_iterations" json:"max_iterations"`
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig defines console output configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
	Metrics  bool `yaml:"metrics" json:"metrics"`
}

// Request returns the task request described by the configuration.
func (c *Config) Request() types.TaskRequest {
	return types.TaskRequest{
		Goal:           c.Goal,
		MaxIterations:  c.MaxIterations,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Goal == "" {
		return fmt.Errorf("goal is required")
	}

	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations cannot be negative")
	}

	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".webpilot/artifacts",
			JSON:      true,
			Markdown:  true,
			Metrics:   true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// LoadConfig reads a YAML run file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	return cfg, nil
}
