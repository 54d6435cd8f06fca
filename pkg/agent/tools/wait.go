package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

const (
	waitToolName   = "wait"
	maxWaitSeconds = 30
)

// WaitTool pauses to let a page finish loading or animating.
type WaitTool struct{}

// NewWaitTool creates a wait tool
func NewWaitTool() *WaitTool {
	return &WaitTool{}
}

func (t *WaitTool) Name() string {
	return waitToolName
}

func (t *WaitTool) Description() string {
	return fmt.Sprintf("Wait for a number of seconds (at most %d) before observing the page again.", maxWaitSeconds)
}

func (t *WaitTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "seconds", Type: ParamNumber, Required: true, Description: "Seconds to wait"},
	}
}

func (t *WaitTool) Timeout() time.Duration {
	return (maxWaitSeconds + 1) * time.Second
}

// ValidateParams bounds the wait duration.
func (t *WaitTool) ValidateParams(params Params) error {
	s := params.Float("seconds")
	if s <= 0 || s > maxWaitSeconds {
		return types.NewError(types.ErrorKindValidation, "wait: seconds must be in (0, %d], got %v", maxWaitSeconds, s)
	}
	return nil
}

func (t *WaitTool) Execute(ctx context.Context, session browser.Session, params Params) (*Result, error) {
	seconds := params.Float("seconds")
	if err := session.Wait(ctx, time.Duration(seconds*float64(time.Second))); err != nil {
		return nil, err
	}
	return &Result{Output: fmt.Sprintf("Waited %gs", seconds)}, nil
}

func (t *WaitTool) IsLoopBreaking() bool {
	return false
}
