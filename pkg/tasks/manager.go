// Package tasks admits, tracks and stops task runs. It owns the
// concurrency gate in front of the browser, the registry of run
// snapshots and the per-task event streams.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/types"
)

var tasksLog *logging.Logger

func init() {
	var err error
	tasksLog, err = logging.NewLogger("tasks")
	if err != nil {
		tasksLog.Warnf("Failed to initialize tasks logger, using stderr fallback: %v", err)
	}
}

// Runner executes one task run to a terminal status.
// *agent.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, id string, req types.TaskRequest, stop *agent.StopSignal, observer agent.Observer) (*types.TaskRun, error)
}

// StatusInfo is the progress summary of a run.
type StatusInfo struct {
	TaskID        string       `json:"task_id"`
	Goal          string       `json:"goal"`
	Status        types.Status `json:"status"`
	CurrentStep   int          `json:"current_step"`
	TotalSteps    int          `json:"total_steps"`
	FinalResult   string       `json:"final_result,omitempty"`
	Error         *types.Error `json:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
}

// Stats summarizes the manager.
type Stats struct {
	Running   int    `json:"running"`
	Capacity  int    `json:"capacity"`
	Admission string `json:"admission"`
	Retained  int    `json:"retained"`
}

type options struct {
	gate      *Gate
	retention int
	buffer    int
	newID     func() string
	now       func() time.Time
	defaults  types.TaskRequest
}

// Option configures a Manager.
type Option func(*options)

// WithGate sets the admission gate. The default admits one run and
// rejects the rest.
func WithGate(g *Gate) Option {
	return func(o *options) {
		o.gate = g
	}
}

// WithRetention sets how many finished runs stay queryable.
func WithRetention(n int) Option {
	return func(o *options) {
		o.retention = n
	}
}

// WithEventBuffer sets the per-subscriber event buffer.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		o.buffer = n
	}
}

// WithIDGenerator replaces the uuid task id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// WithRequestDefaults sets the budgets given to requests that leave them
// unset.
func WithRequestDefaults(maxIterations, timeoutSeconds int) Option {
	return func(o *options) {
		o.defaults.MaxIterations = maxIterations
		o.defaults.TimeoutSeconds = timeoutSeconds
	}
}

// Manager is the entry point for submitting and controlling task runs.
// All methods are safe for concurrent use.
type Manager struct {
	runner   Runner
	registry *Registry
	gate     *Gate
	events   *Broadcaster
	newID    func() string
	now      func() time.Time
	defaults types.TaskRequest

	mu     sync.Mutex
	active map[string]*activeRun
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type activeRun struct {
	stop *agent.StopSignal
	done chan struct{}
}

// NewManager creates a manager that executes runs with runner.
func NewManager(runner Runner, opts ...Option) *Manager {
	o := options{
		newID: uuid.NewString,
		now:   time.Now,
		defaults: types.TaskRequest{
			MaxIterations:  types.DefaultMaxIterations,
			TimeoutSeconds: types.DefaultTimeoutSeconds,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gate == nil {
		o.gate, _ = NewGate(1, PolicyReject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		runner:   runner,
		gate:     o.gate,
		events:   NewBroadcaster(o.buffer),
		newID:    o.newID,
		now:      o.now,
		defaults: o.defaults,
		active:   make(map[string]*activeRun),
		ctx:      ctx,
		cancel:   cancel,
	}
	m.registry = NewRegistry(o.retention, m.events.Forget)
	return m
}

// Submit validates req, takes a session slot and starts the run in the
// background. It returns the new task id.
//
// A full gate returns ErrBusy under the reject policy, or blocks until a
// slot frees up or ctx is done under the queue policy. ctx only bounds
// admission; the run itself outlives it.
func (m *Manager) Submit(ctx context.Context, req types.TaskRequest) (string, error) {
	req = m.withDefaults(req)
	if err := req.Validate(); err != nil {
		return "", err
	}
	if m.isClosed() {
		return "", ErrShuttingDown
	}

	if err := m.gate.Acquire(ctx); err != nil {
		return "", err
	}

	id := m.newID()
	active := &activeRun{stop: agent.NewStopSignal(), done: make(chan struct{})}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.gate.Release()
		return "", ErrShuttingDown
	}
	m.active[id] = active
	m.wg.Add(1)
	m.mu.Unlock()

	m.registry.Put(types.NewTaskRun(id, req, m.now()))
	m.events.Publish(types.NewTaskStartedEvent(id))
	tasksLog.Infof("Accepted task %s: %s", id, req.Goal)

	go m.execute(id, req, active)
	return id, nil
}

// Execute submits req and waits for its run to finish. If ctx is done
// first the run is stopped and Execute still waits for it to wind down.
func (m *Manager) Execute(ctx context.Context, req types.TaskRequest) (*types.TaskRun, error) {
	id, err := m.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	active := m.active[id]
	m.mu.Unlock()

	if active != nil {
		select {
		case <-active.done:
		case <-ctx.Done():
			active.stop.Stop()
			<-active.done
		}
	}
	return m.Snapshot(id)
}

func (m *Manager) execute(id string, req types.TaskRequest, active *activeRun) {
	defer m.wg.Done()
	defer close(active.done)
	defer func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}()
	defer m.gate.Release()
	defer func() {
		if r := recover(); r != nil {
			tasksLog.Errorf("Task %s panicked: %v", id, r)
			m.finish(m.failedRun(id, req, types.NewError(types.ErrorKindToolExecution, "internal error: %v", r)))
		}
	}()

	run, err := m.runner.Run(m.ctx, id, req, active.stop, runObserver{m})
	if err != nil {
		m.finish(m.failedRun(id, req, types.AsError(err, types.ErrorKindValidation)))
		return
	}
	// A runner that reported RunFinished makes this a no-op
	m.finish(run)
}

func (m *Manager) failedRun(id string, req types.TaskRequest, err *types.Error) *types.TaskRun {
	run, ok := m.registry.Get(id)
	if !ok {
		run = types.NewTaskRun(id, req, m.now())
	}
	now := m.now()
	run.Status = types.StatusFailed
	run.EndedAt = &now
	run.Error = err
	return run
}

// finish stores a terminal snapshot and emits the final event once.
func (m *Manager) finish(run *types.TaskRun) {
	if run == nil || !run.Status.IsTerminal() {
		return
	}
	if m.registry.Put(run) {
		m.events.Publish(types.NewTaskFinishedEvent(run))
		tasksLog.Infof("Task %s finished with status %s after %d steps", run.ID, run.Status, len(run.Steps))
	}
}

// Status returns the progress summary of a run.
func (m *Manager) Status(id string) (*StatusInfo, error) {
	run, err := m.Snapshot(id)
	if err != nil {
		return nil, err
	}
	return m.statusOf(run), nil
}

func (m *Manager) statusOf(run *types.TaskRun) *StatusInfo {
	return &StatusInfo{
		TaskID:        run.ID,
		Goal:          run.Request.Goal,
		Status:        run.Status,
		CurrentStep:   run.CurrentStep(),
		TotalSteps:    run.Request.MaxIterations,
		FinalResult:   run.FinalResult,
		Error:         run.Error,
		ExecutionTime: run.ExecutionTime(m.now()).Seconds(),
	}
}

// Snapshot returns the latest snapshot of a run.
func (m *Manager) Snapshot(id string) (*types.TaskRun, error) {
	run, ok := m.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return run, nil
}

// List returns the status of every retained run in submission order.
func (m *Manager) List() []*StatusInfo {
	runs := m.registry.List()
	out := make([]*StatusInfo, len(runs))
	for i, run := range runs {
		out[i] = m.statusOf(run)
	}
	return out
}

// Stop asks a run to stop at its next iteration boundary and returns
// immediately. Stopping a finished run is a no-op.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	active, ok := m.active[id]
	m.mu.Unlock()

	if ok {
		active.stop.Stop()
		tasksLog.Infof("Stop requested for task %s", id)
		return nil
	}
	if _, ok := m.registry.Get(id); ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Subscribe streams the events of a run. The channel is closed after the
// terminal event; call cancel to unsubscribe early.
func (m *Manager) Subscribe(id string) (<-chan *types.TaskEvent, func(), error) {
	if _, ok := m.registry.Get(id); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	ch, cancel := m.events.Subscribe(id)
	return ch, cancel, nil
}

// Cleanup forgets a finished run.
func (m *Manager) Cleanup(id string) error {
	if err := m.registry.Remove(id); err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	m.events.Forget(id)
	return nil
}

// Stats returns current admission and retention figures.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	running := len(m.active)
	m.mu.Unlock()

	return Stats{
		Running:   running,
		Capacity:  m.gate.Capacity(),
		Admission: m.gate.Policy(),
		Retained:  m.registry.Len(),
	}
}

// Shutdown stops accepting runs, asks every active run to stop and waits
// for them. When ctx expires first, in-flight tool calls are cancelled and
// ctx's error is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, active := range m.active {
		active.stop.Stop()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		return ctx.Err()
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) withDefaults(req types.TaskRequest) types.TaskRequest {
	if req.MaxIterations == 0 {
		req.MaxIterations = m.defaults.MaxIterations
	}
	if req.TimeoutSeconds == 0 {
		req.TimeoutSeconds = m.defaults.TimeoutSeconds
	}
	return req.WithDefaults()
}

// runObserver feeds loop progress into the registry and event streams.
type runObserver struct {
	m *Manager
}

func (o runObserver) StepCompleted(snapshot *types.TaskRun, step types.Step) {
	o.m.registry.Put(snapshot)
	o.m.events.Publish(types.NewStepEvent(snapshot.ID, step))
}

func (o runObserver) RunFinished(snapshot *types.TaskRun) {
	o.m.finish(snapshot)
}
