package headless

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing goal", func(c *Config) { c.Goal = "" }, "goal is required"},
		{"negative iterations", func(c *Config) { c.MaxIterations = -1 }, "max_iterations"},
		{"negative timeout", func(c *Config) { c.TimeoutSeconds = -5 }, "timeout_seconds"},
		{"artifacts without dir", func(c *Config) { c.Artifacts.OutputDir = "" }, "output_dir"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "invalid logging verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Goal = "Open example.com"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateDefaultsVerbosity(t *testing.T) {
	cfg := &Config{Goal: "g"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestConfigRequest(t *testing.T) {
	cfg := &Config{Goal: "g", MaxIterations: 4, TimeoutSeconds: 60}
	req := cfg.Request()
	assert.Equal(t, "g", req.Goal)
	assert.Equal(t, 4, req.MaxIterations)
	assert.Equal(t, 60, req.TimeoutSeconds)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	content := `goal: Search for golang
max_iterations: 8
artifacts:
  output_dir: out
  markdown: false
logging:
  verbosity: verbose
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Search for golang", cfg.Goal)
	assert.Equal(t, 8, cfg.MaxIterations)
	assert.Equal(t, "out", cfg.Artifacts.OutputDir)
	assert.False(t, cfg.Artifacts.Markdown)
	assert.True(t, cfg.Artifacts.JSON, "unset keys keep defaults")
	assert.Equal(t, "verbose", cfg.Logging.Verbosity)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
