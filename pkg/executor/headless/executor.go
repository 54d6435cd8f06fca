package headless

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/tasks"
	"github.com/entrhq/webpilot/pkg/types"
)

var headlessLog *logging.Logger

func init() {
	var err error
	headlessLog, err = logging.NewLogger("headless")
	if err != nil {
		headlessLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

// Executor runs a single goal to completion without an HTTP surface.
type Executor struct {
	manager        *tasks.Manager
	config         *Config
	artifactWriter *ArtifactWriter
	console        *Logger

	mu     sync.Mutex
	taskID string
}

// NewExecutor creates a new headless executor on top of a task manager
func NewExecutor(manager *tasks.Manager, config *Config) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Executor{
		manager:        manager,
		config:         config,
		artifactWriter: NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts),
		console:        NewLogger(parseLogLevel(config.Logging.Verbosity)),
	}, nil
}

// SetConsole replaces the console logger.
func (e *Executor) SetConsole(l *Logger) {
	e.console = l
}

// Run submits the goal, follows its events and writes artifacts once the
// run is terminal. The returned summary is non-nil whenever the run
// started; the error is non-nil when the run failed.
func (e *Executor) Run(ctx context.Context) (*ExecutionSummary, error) {
	e.console.Header("Webpilot Headless Execution")
	e.console.Infof("Goal: %s", e.config.Goal)

	id, err := e.manager.Submit(ctx, e.config.Request())
	if err != nil {
		e.console.Errorf("%v", err)
		return nil, fmt.Errorf("failed to submit task: %w", err)
	}
	e.mu.Lock()
	e.taskID = id
	e.mu.Unlock()
	headlessLog.Infof("Submitted task %s", id)

	events, cancel, err := e.manager.Subscribe(id)
	if err != nil {
		return nil, fmt.Errorf("failed to follow task %s: %w", id, err)
	}
	defer cancel()

	e.console.Section("Steps")
	e.follow(ctx, id, events)

	run, err := e.manager.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return e.finalize(run)
}

// follow logs step events until the task finishes. When ctx ends first the
// task is asked to stop and its remaining events are still drained.
func (e *Executor) follow(ctx context.Context, id string, events <-chan *types.TaskEvent) {
	done := ctx.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case types.EventTypeStepComplete:
				if ev.Step != nil {
					e.console.Step(*ev.Step)
				}
			case types.EventTypeTaskFinished:
				e.console.Debugf("task %s finished with status %s", id, ev.Status)
			}
		case <-done:
			e.console.Warningf("execution canceled, stopping task")
			if err := e.manager.Stop(id); err != nil {
				headlessLog.Warnf("Failed to stop task %s: %v", id, err)
			}
			done = nil
		}
	}
}

// finalize builds the summary and writes artifacts
func (e *Executor) finalize(run *types.TaskRun) (*ExecutionSummary, error) {
	summary := NewExecutionSummary(run)

	if e.config.Artifacts.Enabled {
		if err := e.artifactWriter.WriteAll(summary); err != nil {
			headlessLog.Warnf("Failed to write artifacts: %v", err)
			e.console.Warningf("failed to write artifacts: %v", err)
		} else {
			e.console.Verbosef("Artifacts written to %s", e.config.Artifacts.OutputDir)
		}
	}

	e.console.Summary(summary)

	if run.Status == types.StatusFailed {
		return summary, fmt.Errorf("execution failed: %w", run.Error)
	}
	return summary, nil
}

// Stop asks the running task to stop
func (e *Executor) Stop() error {
	e.mu.Lock()
	id := e.taskID
	e.mu.Unlock()
	if id == "" {
		return nil
	}
	return e.manager.Stop(id)
}
