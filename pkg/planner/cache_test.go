package planner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

// countingPlanner returns a fresh tool call on every invocation.
type countingPlanner struct {
	calls int
	err   error
}

func (c *countingPlanner) Plan(_ context.Context, goal string, _ *types.Observation, _ []types.Step) (*types.ToolCall, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &types.ToolCall{
		ToolName:   "type",
		Parameters: map[string]interface{}{"selector": "#q", "text": goal, "n": c.calls},
		Reasoning:  "search box is visible",
	}, nil
}

func TestCachingPlannerReplaysIdenticalBytes(t *testing.T) {
	next := &countingPlanner{}
	cp, err := NewCachingPlanner(next, 8)
	require.NoError(t, err)

	history := []types.Step{{Index: 1, ToolCall: &types.ToolCall{ToolName: "read_dom"}, Success: true, Result: "ok"}}

	first, err := cp.Plan(context.Background(), "golang", testObs, history)
	require.NoError(t, err)
	second, err := cp.Plan(context.Background(), "golang", testObs, history)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
	assert.NotSame(t, first, second)

	// mutating a returned plan must not leak into the cache
	first.Parameters["text"] = "changed"
	third, err := cp.Plan(context.Background(), "golang", testObs, history)
	require.NoError(t, err)
	assert.Equal(t, "golang", third.Parameters["text"])
}

func TestCachingPlannerMisses(t *testing.T) {
	next := &countingPlanner{}
	cp, err := NewCachingPlanner(next, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = cp.Plan(ctx, "a", testObs, nil)
	_, _ = cp.Plan(ctx, "b", testObs, nil)

	other := *testObs
	other.URL = "https://example.org/"
	_, _ = cp.Plan(ctx, "a", &other, nil)

	_, _ = cp.Plan(ctx, "a", testObs, []types.Step{{Index: 1, Success: false, Error: types.NewError(types.ErrorKindPlanning, "x")}})

	assert.Equal(t, 4, next.calls)
	assert.Equal(t, 4, cp.Len())
}

func TestCachingPlannerDoesNotCacheErrors(t *testing.T) {
	next := &countingPlanner{err: types.NewError(types.ErrorKindPlanning, "garbled")}
	cp, err := NewCachingPlanner(next, 8)
	require.NoError(t, err)

	_, err = cp.Plan(context.Background(), "goal", testObs, nil)
	require.Error(t, err)
	_, err = cp.Plan(context.Background(), "goal", testObs, nil)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Zero(t, cp.Len())

	next.err = nil
	_, err = cp.Plan(context.Background(), "goal", testObs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Len())
}

func TestCachingPlannerEviction(t *testing.T) {
	next := &countingPlanner{}
	cp, err := NewCachingPlanner(next, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = cp.Plan(ctx, "a", testObs, nil)
	_, _ = cp.Plan(ctx, "b", testObs, nil)
	_, _ = cp.Plan(ctx, "c", testObs, nil)
	assert.Equal(t, 2, cp.Len())

	_, _ = cp.Plan(ctx, "a", testObs, nil)
	assert.Equal(t, 4, next.calls)

	cp.Purge()
	assert.Zero(t, cp.Len())
}

func TestFingerprintIgnoresTiming(t *testing.T) {
	step := types.Step{Index: 1, ToolCall: &types.ToolCall{ToolName: "wait", Parameters: map[string]interface{}{"seconds": 1}}, Success: true}
	a := step
	a.StartedAt = time.Unix(100, 0)
	a.Duration = time.Second
	b := step
	b.StartedAt = time.Unix(200, 0)
	b.Duration = 3 * time.Second

	ka, err := Fingerprint("g", testObs, []types.Step{a})
	require.NoError(t, err)
	kb, err := Fingerprint("g", testObs, []types.Step{b})
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
	assert.Len(t, ka, 64)
}

func TestFingerprintUnmarshalableInputBypassesCache(t *testing.T) {
	next := &countingPlanner{}
	cp, err := NewCachingPlanner(next, 8)
	require.NoError(t, err)

	history := []types.Step{{Index: 1, ToolCall: &types.ToolCall{ToolName: "x", Parameters: map[string]interface{}{"bad": make(chan int)}}}}
	_, err = cp.Plan(context.Background(), "goal", testObs, history)
	require.NoError(t, err)
	_, err = cp.Plan(context.Background(), "goal", testObs, history)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
