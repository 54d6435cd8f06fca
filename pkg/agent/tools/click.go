package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
)

const clickToolName = "click"

// ClickTool clicks an element identified by a CSS selector.
type ClickTool struct {
	timeout time.Duration
}

// NewClickTool creates a click tool
func NewClickTool(timeout time.Duration) *ClickTool {
	return &ClickTool{timeout: timeout}
}

func (t *ClickTool) Name() string {
	return clickToolName
}

func (t *ClickTool) Description() string {
	return "Click the first element matching a CSS selector. Use selectors from the observed interactive elements."
}

func (t *ClickTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "selector", Type: ParamString, Required: true, Description: "CSS selector of the element to click"},
	}
}

// Timeout covers waiting for the element and the click itself.
func (t *ClickTool) Timeout() time.Duration {
	return 2 * t.timeout
}

func (t *ClickTool) Execute(ctx context.Context, session browser.Session, params Params) (*Result, error) {
	selector := params.String("selector")
	if err := session.Click(ctx, selector, t.timeout); err != nil {
		return nil, err
	}
	return &Result{Output: fmt.Sprintf("Clicked %s", selector)}, nil
}

func (t *ClickTool) IsLoopBreaking() bool {
	return false
}
