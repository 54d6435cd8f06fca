package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
)

const typeToolName = "type"

// TypeTool fills a form field with text.
type TypeTool struct {
	timeout time.Duration
}

// NewTypeTool creates a type tool
func NewTypeTool(timeout time.Duration) *TypeTool {
	return &TypeTool{timeout: timeout}
}

func (t *TypeTool) Name() string {
	return typeToolName
}

func (t *TypeTool) Description() string {
	return "Replace the value of an input, textarea or editable element with the given text."
}

func (t *TypeTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "selector", Type: ParamString, Required: true, Description: "CSS selector of the field"},
		{Name: "text", Type: ParamString, Required: true, Description: "Text to enter"},
	}
}

func (t *TypeTool) Timeout() time.Duration {
	return 2 * t.timeout
}

func (t *TypeTool) Execute(ctx context.Context, session browser.Session, params Params) (*Result, error) {
	selector := params.String("selector")
	text := params.String("text")
	if err := session.Type(ctx, selector, text, t.timeout); err != nil {
		return nil, err
	}
	return &Result{
		Output:   fmt.Sprintf("Typed %d characters into %s", len([]rune(text)), selector),
		Metadata: map[string]interface{}{"selector": selector},
	}, nil
}

func (t *TypeTool) IsLoopBreaking() bool {
	return false
}
