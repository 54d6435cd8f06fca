package tools

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

// fakeSession records calls and returns canned results.
type fakeSession struct {
	mu    sync.Mutex
	calls []string

	navigateErr error
	clickErr    error
	typeErr     error
	observation *types.Observation
	screenshot  []byte
	block       bool

	lastTyped string
	lastWait  time.Duration
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSession) Navigate(ctx context.Context, url string, _ time.Duration) (*browser.NavigateResult, error) {
	f.record("navigate " + url)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.navigateErr != nil {
		return nil, f.navigateErr
	}
	return &browser.NavigateResult{FinalURL: url, Title: "Example", StatusCode: 200}, nil
}

func (f *fakeSession) Click(ctx context.Context, selector string, _ time.Duration) error {
	f.record("click " + selector)
	if err := f.wait(ctx); err != nil {
		return err
	}
	return f.clickErr
}

func (f *fakeSession) Type(ctx context.Context, selector, text string, _ time.Duration) error {
	f.record("type " + selector)
	f.lastTyped = text
	return f.typeErr
}

func (f *fakeSession) Wait(_ context.Context, d time.Duration) error {
	f.record("wait")
	f.lastWait = d
	return nil
}

func (f *fakeSession) Observe(_ context.Context) (*types.Observation, error) {
	f.record("observe")
	if f.observation == nil {
		return &types.Observation{Elements: []types.InteractiveElement{}}, nil
	}
	return f.observation, nil
}

func (f *fakeSession) Screenshot(_ context.Context, _ time.Duration) ([]byte, error) {
	f.record("screenshot")
	return f.screenshot, nil
}

func (f *fakeSession) Close() error {
	return nil
}

var _ browser.Session = (*fakeSession)(nil)
