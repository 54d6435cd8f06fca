package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

// fakeSession is an in-memory page that follows navigations.
type fakeSession struct {
	mu          sync.Mutex
	url         string
	navigateErr error
	observeErr  error
	observes    int
	closed      bool
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) (*browser.NavigateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navigateErr != nil {
		return nil, s.navigateErr
	}
	s.url = url
	return &browser.NavigateResult{FinalURL: url, Title: "Example Domain", StatusCode: 200}, nil
}

func (s *fakeSession) Click(context.Context, string, time.Duration) error        { return nil }
func (s *fakeSession) Type(context.Context, string, string, time.Duration) error { return nil }
func (s *fakeSession) Wait(context.Context, time.Duration) error                 { return nil }

func (s *fakeSession) Observe(_ context.Context) (*types.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observes++
	if s.observeErr != nil {
		return nil, s.observeErr
	}
	return &types.Observation{
		URL:         s.url,
		Title:       "Example Domain",
		Elements:    []types.InteractiveElement{},
		TextPreview: "This domain is for use in illustrative examples.",
	}, nil
}

func (s *fakeSession) Screenshot(context.Context, time.Duration) ([]byte, error) {
	return []byte("png"), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) observeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observes
}

// fakeSessions hands out a single fakeSession.
type fakeSessions struct {
	mu         sync.Mutex
	session    *fakeSession
	acquireErr error
	acquired   int
	released   []string
}

func (p *fakeSessions) Acquire(_ context.Context, _ string) (browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.session, nil
}

func (p *fakeSessions) Release(owner string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, owner)
	return p.session.Close()
}

// fakeClock only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slowTool pretends to run for a long time by advancing the fake clock.
type slowTool struct {
	clock *fakeClock
	took  time.Duration
	err   error
}

func (t *slowTool) Name() string              { return "slow" }
func (t *slowTool) Description() string       { return "Takes a while" }
func (t *slowTool) Params() []tools.ParamSpec { return nil }
func (t *slowTool) Timeout() time.Duration    { return 0 }
func (t *slowTool) IsLoopBreaking() bool      { return false }

func (t *slowTool) Execute(context.Context, browser.Session, tools.Params) (*tools.Result, error) {
	t.clock.Advance(t.took)
	if t.err != nil {
		return nil, t.err
	}
	return &tools.Result{Output: "done slowly"}, nil
}

// script returns a planner that replays calls in order, repeating the last.
func script(calls ...*types.ToolCall) (planner.Planner, *[][]types.Step) {
	var mu sync.Mutex
	var histories [][]types.Step
	i := 0
	return planner.PlannerFunc(func(_ context.Context, _ string, _ *types.Observation, history []types.Step) (*types.ToolCall, error) {
		mu.Lock()
		defer mu.Unlock()
		histories = append(histories, history)
		call := calls[len(calls)-1]
		if i < len(calls) {
			call = calls[i]
		}
		i++
		return call, nil
	}), &histories
}

func call(name string, params map[string]interface{}) *types.ToolCall {
	return &types.ToolCall{ToolName: name, Parameters: params, Reasoning: "test"}
}

func navigate(url string) *types.ToolCall {
	return call("navigate", map[string]interface{}{"url": url})
}

func complete(result string) *types.ToolCall {
	return call("task_completion", map[string]interface{}{"result": result})
}

func newRegistry(t *testing.T, extra ...tools.Tool) *tools.Registry {
	t.Helper()
	registry, err := tools.NewDefaultRegistry(tools.Options{})
	require.NoError(t, err)
	for _, tool := range extra {
		require.NoError(t, registry.Register(tool))
	}
	return registry
}

func request(goal string, maxIterations int) types.TaskRequest {
	return types.TaskRequest{Goal: goal, MaxIterations: maxIterations, TimeoutSeconds: 300}
}

var errNameNotResolved = errors.New("net::ERR_NAME_NOT_RESOLVED")
