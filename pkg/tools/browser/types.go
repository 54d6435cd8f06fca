package browser

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/webpilot/pkg/types"
)

// Session is an exclusive handle to one browser context. It is owned by a
// single task run and its operations must not be called concurrently.
//
// A timeout of zero means the session default. Failures wrap one of the
// sentinel errors below so callers can classify them with errors.Is.
type Session interface {
	// Navigate loads url and returns the final URL and title.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigateResult, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Type replaces the value of the first element matching selector.
	Type(ctx context.Context, selector, text string, timeout time.Duration) error

	// Wait pauses for d. It only fails when ctx is done.
	Wait(ctx context.Context, d time.Duration) error

	// Observe snapshots the current page.
	Observe(ctx context.Context) (*types.Observation, error)

	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Close releases the browser context. Safe to call multiple times.
	Close() error
}

// Provider hands out sessions to task runs.
type Provider interface {
	// Acquire returns a fresh session owned by owner.
	Acquire(ctx context.Context, owner string) (Session, error)

	// Release closes the session owned by owner.
	Release(owner string) error
}

// NavigateResult is the outcome of a successful navigation.
type NavigateResult struct {
	FinalURL   string `json:"final_url"`
	Title      string `json:"title"`
	StatusCode int    `json:"status_code,omitempty"`
}

var (
	// ErrNavigation is returned when a page fails to load or ends in a non-2xx status.
	ErrNavigation = errors.New("navigation failed")

	// ErrElementNotFound is returned when a selector resolves to no element.
	ErrElementNotFound = errors.New("element not found")

	// ErrActionTimeout is returned when an element action does not finish in time.
	ErrActionTimeout = errors.New("action timed out")

	// ErrCapture is returned when the page cannot be read or captured.
	ErrCapture = errors.New("capture failed")

	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// SessionOptions configures new browser sessions.
type SessionOptions struct {
	// BrowserType is chromium, firefox or webkit
	BrowserType string

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// UserAgent overrides the browser user agent when set
	UserAgent string

	// Timeout is the default for operations called with a zero timeout
	Timeout time.Duration

	// Limits caps observations
	Limits ObserveLimits
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// ObserveLimits caps the size of an Observation.
type ObserveLimits struct {
	MaxElements  int
	PreviewChars int
}

func (l ObserveLimits) withDefaults() ObserveLimits {
	if l.MaxElements <= 0 {
		l.MaxElements = DefaultMaxElements
	}
	if l.PreviewChars <= 0 {
		l.PreviewChars = DefaultPreviewChars
	}
	return l
}

// Default values for various operations
const (
	DefaultTimeout        = 30 * time.Second
	DefaultSettleTimeout  = 10 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
	DefaultMaxElements    = 10
	DefaultPreviewChars   = 500
)
