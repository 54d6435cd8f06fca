package headless

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/tasks"
	"github.com/entrhq/webpilot/pkg/types"
)

// stubRunner replays steps and finishes with the configured outcome.
type stubRunner struct {
	steps   []types.Step
	status  types.Status
	failure *types.Error
	block   bool
}

func (s *stubRunner) Run(ctx context.Context, id string, req types.TaskRequest, stop *agent.StopSignal, observer agent.Observer) (*types.TaskRun, error) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	run := types.NewTaskRun(id, req, start)
	for _, step := range s.steps {
		run.Steps = append(run.Steps, step)
		observer.StepCompleted(run.Clone(), step)
	}

	run.Status = s.status
	if s.block {
		<-stop.Done()
		run.Status = types.StatusStopped
	}
	switch run.Status {
	case types.StatusCompleted:
		run.FinalResult = "Goal achieved successfully"
	case types.StatusFailed:
		run.Error = s.failure
	}
	end := start.Add(3 * time.Second)
	run.EndedAt = &end
	observer.RunFinished(run.Clone())
	return run, nil
}

func browsingSteps() []types.Step {
	return []types.Step{
		{
			Index:       1,
			ToolCall:    &types.ToolCall{ToolName: "navigate", Parameters: map[string]interface{}{"url": "https://example.com"}},
			Success:     true,
			Result:      "Navigated to https://example.com",
			Observation: &types.Observation{URL: "https://example.com"},
			Duration:    time.Second,
		},
		{
			Index:       2,
			ToolCall:    &types.ToolCall{ToolName: "click", Parameters: map[string]interface{}{"selector": "#more"}},
			Success:     false,
			Error:       types.NewError(types.ErrorKindToolExecution, "element not found: #more"),
			Observation: &types.Observation{URL: "https://example.com"},
			Duration:    time.Second,
		},
	}
}

func newTestExecutor(t *testing.T, runner tasks.Runner) (*Executor, *bytes.Buffer, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Goal = "Open example.com"
	cfg.Artifacts.OutputDir = filepath.Join(t.TempDir(), "artifacts")

	exec, err := NewExecutor(tasks.NewManager(runner), cfg)
	require.NoError(t, err)
	var out bytes.Buffer
	exec.SetConsole(NewWriterLogger(LogLevelVerbose, &out))
	return exec, &out, cfg.Artifacts.OutputDir
}

func TestExecutorRunCompleted(t *testing.T) {
	exec, out, dir := newTestExecutor(t, &stubRunner{steps: browsingSteps(), status: types.StatusCompleted})

	summary, err := exec.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, "Goal achieved successfully", summary.FinalResult)
	assert.Equal(t, 3*time.Second, summary.Duration)
	assert.Equal(t, ExecutionMetrics{Steps: 2, SuccessfulSteps: 1, FailedSteps: 1, PagesVisited: 1}, summary.Metrics)

	for _, name := range []string{"execution.json", "summary.md", "metrics.json"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Contains(t, out.String(), "COMPLETED")
}

func TestExecutorRunFailed(t *testing.T) {
	failure := types.NewError(types.ErrorKindToolExecution, "Too many consecutive failures (3)")
	exec, out, _ := newTestExecutor(t, &stubRunner{steps: browsingSteps()[1:], status: types.StatusFailed, failure: failure})

	summary, err := exec.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrorKindToolExecution, types.KindOf(err))
	require.NotNil(t, summary)
	assert.Equal(t, "failed", summary.Status)
	assert.Equal(t, string(types.ErrorKindToolExecution), summary.ErrorKind)
	assert.Contains(t, out.String(), "Too many consecutive failures")
}

func TestExecutorRunCanceledStopsTask(t *testing.T) {
	exec, _, _ := newTestExecutor(t, &stubRunner{status: types.StatusCompleted, block: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	summary, err := exec.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "stopped", summary.Status)
}

func TestExecutorArtifactsDisabled(t *testing.T) {
	exec, _, dir := newTestExecutor(t, &stubRunner{status: types.StatusCompleted})
	exec.config.Artifacts.Enabled = false

	_, err := exec.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecutorStopBeforeRun(t *testing.T) {
	exec, _, _ := newTestExecutor(t, &stubRunner{status: types.StatusCompleted})
	assert.NoError(t, exec.Stop())
}

func TestNewExecutorInvalidConfig(t *testing.T) {
	_, err := NewExecutor(tasks.NewManager(&stubRunner{}), DefaultConfig())
	assert.Error(t, err)
}
