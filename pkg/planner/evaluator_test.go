package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes.", true},
		{"**Yes** the page shows it", true},
		{"NO", false},
		{"Not yet", false},
		{"", false},
		{"Yesterday", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, isAffirmative(tt.answer))
		})
	}
}

func TestLLMEvaluator(t *testing.T) {
	provider := &fakeProvider{replies: []*types.Message{
		reply("<thinking>The title matches.</thinking>YES"),
		reply("NO"),
	}}
	e := NewLLMEvaluator(provider, nil, 0)

	done, err := e.Evaluate(context.Background(), "open example.com", testObs, nil)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = e.Evaluate(context.Background(), "open example.com", testObs, nil)
	require.NoError(t, err)
	assert.False(t, done)

	failing := NewLLMEvaluator(&fakeProvider{errs: []error{errors.New("down")}}, nil, 0)
	_, err = failing.Evaluate(context.Background(), "goal", testObs, nil)
	assert.Equal(t, types.ErrorKindPlanning, types.KindOf(err))
}

func TestHeuristicEvaluator(t *testing.T) {
	tests := []struct {
		name string
		goal string
		obs  *types.Observation
		want bool
	}{
		{"url match", "Navigate to https://example.com", testObs, true},
		{"url with www and trailing punctuation", "Go to https://www.example.com.", testObs, true},
		{"url mismatch", "Navigate to https://example.org", testObs, false},
		{"last url wins", "Open https://example.org then https://example.com/", testObs, true},
		{"phrase in preview", `Find the text "illustrative examples"`, testObs, true},
		{"phrase in title case-insensitive", `Open the page titled "example domain"`, testObs, true},
		{"curly quotes", "Find “illustrative examples”", testObs, true},
		{"quoted url", `Navigate to "https://example.com"`, testObs, true},
		{"quoted url mismatch", `Navigate to "https://example.org"`, testObs, false},
		{"quoted url and phrase", `Open "https://example.com" and find "illustrative examples"`, testObs, true},
		{"missing phrase", `Find "pricing"`, testObs, false},
		{"url and phrase must both hold", `Open https://example.com and find "pricing"`, testObs, false},
		{"nothing checkable", "Look around the site", testObs, false},
		{"nil observation", "Navigate to https://example.com", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := NewHeuristicEvaluator().Evaluate(context.Background(), tt.goal, tt.obs, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, done)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", normalizeURL("HTTPS://WWW.Example.com/"))
	assert.Equal(t, "https://example.com/a?q=1", normalizeURL("https://example.com/a/?q=1#top"))
	assert.Equal(t, "not a url", normalizeURL("not a url/"))
}

func TestFirstOf(t *testing.T) {
	yes := EvaluatorFunc(func(context.Context, string, *types.Observation, []types.Step) (bool, error) { return true, nil })
	no := EvaluatorFunc(func(context.Context, string, *types.Observation, []types.Step) (bool, error) { return false, nil })
	broken := EvaluatorFunc(func(context.Context, string, *types.Observation, []types.Step) (bool, error) {
		return false, errors.New("boom")
	})

	calls := 0
	counting := EvaluatorFunc(func(context.Context, string, *types.Observation, []types.Step) (bool, error) {
		calls++
		return true, nil
	})

	ctx := context.Background()

	done, err := FirstOf(no, broken, yes).Evaluate(ctx, "g", testObs, nil)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = FirstOf(broken, no, nil).Evaluate(ctx, "g", testObs, nil)
	require.NoError(t, err)
	assert.False(t, done)

	_, _ = FirstOf(yes, counting).Evaluate(ctx, "g", testObs, nil)
	assert.Zero(t, calls)
}
