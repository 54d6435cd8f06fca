// Package agent runs the plan, act, observe loop that drives a browser
// session towards a natural language goal.
package agent

import (
	"context"
	"time"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// goalAchievedResult is the final result of a run completed by the goal
// evaluator rather than by an explicit task_completion call.
const goalAchievedResult = "Goal achieved successfully"

// Orchestrator drives one TaskRun at a time per call to Run. The
// orchestrator itself holds no per-run state and may be shared by
// concurrent runs.
type Orchestrator struct {
	sessions  browser.Provider
	registry  *tools.Registry
	planner   planner.Planner
	evaluator planner.GoalEvaluator

	failureThreshold int
	stepDelay        time.Duration
	observeTimeout   time.Duration
	clock            Clock
	log              *logging.Logger
}

// NewOrchestrator creates an orchestrator that acquires sessions from
// sessions, asks p for the next action and runs it through registry.
func NewOrchestrator(sessions browser.Provider, registry *tools.Registry, p planner.Planner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:         sessions,
		registry:         registry,
		planner:          p,
		failureThreshold: DefaultFailureThreshold,
		observeTimeout:   DefaultObserveTimeout,
		clock:            systemClock{},
		log:              agentDebugLog,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes req to a terminal status and returns the final TaskRun.
//
// An invalid request is rejected with a validation error before any session
// is acquired. Every other outcome, including failures, is reported through
// the returned run's Status and Error. Stop requests and ctx cancellation
// are honoured at iteration boundaries and yield StatusStopped.
func (o *Orchestrator) Run(ctx context.Context, id string, req types.TaskRequest, stop *StopSignal, observer Observer) (*types.TaskRun, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = ObserverFuncs{}
	}

	l := &loop{
		Orchestrator: o,
		run:          types.NewTaskRun(id, req, o.clock.Now()),
		stop:         stop,
		observer:     observer,
		log:          o.log.With(id),
	}
	l.log.Infof("Starting task: %s (max_iterations=%d, timeout=%ds)", req.Goal, req.MaxIterations, req.TimeoutSeconds)
	l.execute(ctx)
	return l.run.Clone(), nil
}

// loop is the state of a single run. Only its goroutine touches it.
type loop struct {
	*Orchestrator

	run      *types.TaskRun
	stop     *StopSignal
	observer Observer
	log      *logging.Logger

	session     browser.Session
	dispatcher  *tools.Dispatcher
	observation *types.Observation
	failures    int
}

// outcome is what an iteration decided beyond its step record.
type outcome struct {
	completed bool
	final     string
}

func (l *loop) execute(ctx context.Context) {
	session, err := l.sessions.Acquire(ctx, l.run.ID)
	if err != nil {
		if l.stopRequested(ctx) {
			l.finish(types.StatusStopped, nil)
			return
		}
		l.finish(types.StatusFailed, types.WrapError(types.ErrorKindToolExecution, err, "failed to acquire browser session"))
		return
	}
	defer func() {
		if err := l.sessions.Release(l.run.ID); err != nil {
			l.log.Warnf("Failed to release browser session: %v", err)
		}
	}()
	l.session = session
	l.dispatcher = l.registry.Bind(session)

	maxIterations := l.run.Request.MaxIterations
	for i := 1; i <= maxIterations; i++ {
		if l.stopRequested(ctx) {
			l.finish(types.StatusStopped, nil)
			return
		}
		if l.overBudget() {
			l.finish(types.StatusFailed, l.timeoutError())
			return
		}

		step, out := l.iterate(ctx, i)
		l.run.Steps = append(l.run.Steps, step)
		l.observer.StepCompleted(l.run.Clone(), step)

		// Stop wins over anything this iteration decided
		if l.stopRequested(ctx) {
			l.finish(types.StatusStopped, nil)
			return
		}
		if out.completed {
			l.run.FinalResult = out.final
			l.finish(types.StatusCompleted, nil)
			return
		}

		if !step.Success && l.overBudget() {
			l.finish(types.StatusFailed, l.timeoutError())
			return
		}
		if step.Success {
			l.resetErrorTracking()
		} else if l.trackError(step.Error) {
			l.finish(types.StatusFailed, step.Error)
			return
		}

		if i < maxIterations {
			l.pause(ctx)
		}
	}

	if l.stopRequested(ctx) {
		l.finish(types.StatusStopped, nil)
		return
	}
	if l.overBudget() {
		l.finish(types.StatusFailed, l.timeoutError())
		return
	}
	l.finish(types.StatusFailed, types.NewError(types.ErrorKindTimeout,
		"iterations exhausted after %d steps without reaching the goal", maxIterations))
}

// iterate runs observe, plan, validate, dispatch and evaluate once.
func (l *loop) iterate(ctx context.Context, index int) (step types.Step, out outcome) {
	step = types.Step{Index: index, StartedAt: l.clock.Now()}
	defer func() {
		step.Duration = l.clock.Now().Sub(step.StartedAt)
		if step.Error != nil {
			l.log.Warnf("Step %d failed: %v", index, step.Error)
		} else {
			l.log.Debugf("Step %d succeeded: %s", index, step.Result)
		}
	}()

	observation, err := l.currentObservation(ctx)
	if err != nil {
		step.Error = types.AsError(err, types.ErrorKindToolExecution)
		return step, out
	}

	call, err := l.planner.Plan(ctx, l.run.Request.Goal, observation, l.history())
	if err != nil {
		step.Error = types.AsError(err, types.ErrorKindPlanning)
		return step, out
	}
	if call == nil {
		step.Error = types.NewError(types.ErrorKindPlanning, "planner returned no tool call")
		return step, out
	}
	step.ToolCall = call
	l.log.Debugf("Step %d plan: %s %v (%s)", index, call.ToolName, call.Parameters, call.Reasoning)

	tool, params, err := l.dispatcher.Validate(call)
	if err != nil {
		step.Error = types.AsError(err, types.ErrorKindValidation)
		return step, out
	}

	result, err := l.dispatcher.Dispatch(ctx, tool, params)
	if err != nil {
		// The page may have changed before the tool failed
		l.observation = nil
		step.Error = types.AsError(err, types.ErrorKindToolExecution)
		return step, out
	}
	step.Success = true
	step.Result = result.Output

	after := result.Observation
	if after == nil {
		after, err = l.observe(ctx)
		if err != nil {
			l.log.Warnf("Post-action observation failed: %v", err)
		}
	}
	step.Observation = after
	l.observation = after

	if tool.IsLoopBreaking() {
		return step, outcome{completed: true, final: result.Output}
	}
	if l.evaluator != nil && after != nil {
		history := append(l.history(), step)
		done, err := l.evaluator.Evaluate(ctx, l.run.Request.Goal, after, history)
		if err != nil {
			l.log.Warnf("Goal evaluation failed, continuing: %v", err)
		} else if done {
			return step, outcome{completed: true, final: goalAchievedResult}
		}
	}
	return step, out
}

// currentObservation reuses the post-action observation of the previous
// step when there is one.
func (l *loop) currentObservation(ctx context.Context) (*types.Observation, error) {
	if l.observation != nil {
		return l.observation, nil
	}
	obs, err := l.observe(ctx)
	if err != nil {
		return nil, err
	}
	l.observation = obs
	return obs, nil
}

func (l *loop) observe(ctx context.Context) (*types.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, l.observeTimeout)
	defer cancel()

	obs, err := l.session.Observe(ctx)
	if err != nil {
		return nil, types.WrapError(types.ErrorKindToolExecution, err, "failed to observe page")
	}
	return obs, nil
}

// history returns the recorded steps with capacity clipped so that callers
// appending to it never write into the run.
func (l *loop) history() []types.Step {
	n := len(l.run.Steps)
	return l.run.Steps[:n:n]
}

// trackError counts a failed step and reports whether the consecutive
// failure threshold has been reached.
func (l *loop) trackError(err *types.Error) bool {
	l.failures++
	if l.failures >= l.failureThreshold {
		l.log.Errorf("%d consecutive failed steps, giving up: %v", l.failures, err)
		return true
	}
	return false
}

func (l *loop) resetErrorTracking() {
	l.failures = 0
}

func (l *loop) stopRequested(ctx context.Context) bool {
	return l.stop.Stopped() || ctx.Err() != nil
}

func (l *loop) overBudget() bool {
	return l.clock.Now().Sub(l.run.StartedAt) >= l.run.Request.Timeout()
}

func (l *loop) timeoutError() *types.Error {
	return types.NewError(types.ErrorKindTimeout, "timeout exceeded after %ds", l.run.Request.TimeoutSeconds)
}

// pause waits out the step delay, returning early on stop or cancellation.
func (l *loop) pause(ctx context.Context) {
	if l.stepDelay <= 0 {
		return
	}
	var stopped <-chan struct{}
	if l.stop != nil {
		stopped = l.stop.Done()
	}

	timer := time.NewTimer(l.stepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-stopped:
	case <-ctx.Done():
	}
}

func (l *loop) finish(status types.Status, err *types.Error) {
	now := l.clock.Now()
	l.run.Status = status
	l.run.EndedAt = &now
	if status == types.StatusFailed {
		if err == nil {
			err = types.NewError(types.ErrorKindToolExecution, "run failed")
		}
		l.run.Error = err
	} else {
		l.run.Error = nil
	}

	switch status {
	case types.StatusCompleted:
		l.log.Infof("Task completed after %d steps: %s", len(l.run.Steps), l.run.FinalResult)
	case types.StatusStopped:
		l.log.Infof("Task stopped after %d steps", len(l.run.Steps))
	default:
		l.log.Warnf("Task failed after %d steps: %v", len(l.run.Steps), l.run.Error)
	}
	l.observer.RunFinished(l.run.Clone())
}
