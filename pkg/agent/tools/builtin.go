package tools

import (
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
)

// Options configures the built-in browser tools.
type Options struct {
	// NavigationTimeout bounds a page load
	NavigationTimeout time.Duration

	// ActionTimeout bounds element lookups and interactions
	ActionTimeout time.Duration

	// Policy restricts navigation targets; nil allows any http(s) URL
	Policy *URLPolicy

	// ScreenshotDir receives screenshot files when set
	ScreenshotDir string
}

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = browser.DefaultTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = browser.DefaultSettleTimeout
	}
	return o
}

// NewBrowserTools returns the built-in tools in catalogue order.
func NewBrowserTools(opts Options) []Tool {
	opts = opts.withDefaults()
	return []Tool{
		NewNavigateTool(opts.NavigationTimeout, opts.Policy),
		NewClickTool(opts.ActionTimeout),
		NewTypeTool(opts.ActionTimeout),
		NewWaitTool(),
		NewReadDOMTool(),
		NewScreenshotTool(opts.ScreenshotDir),
		NewTaskCompletionTool(),
	}
}

// NewDefaultRegistry creates a registry holding the built-in tools.
func NewDefaultRegistry(opts Options) (*Registry, error) {
	return NewRegistry(NewBrowserTools(opts)...)
}
