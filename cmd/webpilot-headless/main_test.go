package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunConfigFromFlags(t *testing.T) {
	cfg, err := loadRunConfig(&CLIConfig{
		Goal:          "Open example.com",
		MaxIterations: 4,
		Timeout:       2 * time.Minute,
		OutputDir:     "out",
		Verbosity:     "quiet",
	})
	require.NoError(t, err)

	assert.Equal(t, "Open example.com", cfg.Goal)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Equal(t, 120, cfg.TimeoutSeconds)
	assert.Equal(t, "out", cfg.Artifacts.OutputDir)
	assert.Equal(t, "quiet", cfg.Logging.Verbosity)
}

func TestLoadRunConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("goal: from file\nmax_iterations: 7\n"), 0600))

	cfg, err := loadRunConfig(&CLIConfig{RunFile: path, Goal: "from flag"})
	require.NoError(t, err)
	assert.Equal(t, "from flag", cfg.Goal)
	assert.Equal(t, 7, cfg.MaxIterations)
}

func TestLoadRunConfigRequiresGoal(t *testing.T) {
	_, err := loadRunConfig(&CLIConfig{})
	assert.Error(t, err)
}
