package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
)

const navigateToolName = "navigate"

// NavigateTool opens a URL in the session.
type NavigateTool struct {
	timeout time.Duration
	policy  *URLPolicy
}

// NewNavigateTool creates a navigate tool. A nil policy allows any http(s) URL.
func NewNavigateTool(timeout time.Duration, policy *URLPolicy) *NavigateTool {
	return &NavigateTool{timeout: timeout, policy: policy}
}

// Name returns the tool's identifier
func (t *NavigateTool) Name() string {
	return navigateToolName
}

// Description returns a description of what this tool does
func (t *NavigateTool) Description() string {
	return "Navigate the browser to an absolute http or https URL and wait for the page to load."
}

// Params describes the tool's arguments
func (t *NavigateTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "url", Type: ParamString, Required: true, Description: "Absolute URL to open"},
	}
}

// Timeout covers the page load plus the network settle wait.
func (t *NavigateTool) Timeout() time.Duration {
	return t.timeout + browser.DefaultSettleTimeout
}

// ValidateParams applies the URL policy before dispatch.
func (t *NavigateTool) ValidateParams(params Params) error {
	return t.policy.Check(params.String("url"))
}

// Execute navigates the session
func (t *NavigateTool) Execute(ctx context.Context, session browser.Session, params Params) (*Result, error) {
	res, err := session.Navigate(ctx, params.String("url"), t.timeout)
	if err != nil {
		return nil, err
	}
	return &Result{
		Output: fmt.Sprintf("Navigated to %s (title: %q)", res.FinalURL, res.Title),
		Metadata: map[string]interface{}{
			"final_url":   res.FinalURL,
			"title":       res.Title,
			"status_code": res.StatusCode,
		},
	}, nil
}

// IsLoopBreaking returns false
func (t *NavigateTool) IsLoopBreaking() bool {
	return false
}
