package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/types"
)

// PlaywrightSession is a Session backed by one Playwright browser and page.
type PlaywrightSession struct {
	owner   string
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	timeout time.Duration
	limits  ObserveLimits

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error

	createdAt  time.Time
	lastUsedAt time.Time
}

// Owner returns the task run that owns this session.
func (s *PlaywrightSession) Owner() string {
	return s.owner
}

// begin serializes operations and rejects calls after Close or cancellation.
func (s *PlaywrightSession) begin(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.lastUsedAt = time.Now()
	return s.mu.Unlock, nil
}

func (s *PlaywrightSession) millis(timeout time.Duration) *float64 {
	if timeout <= 0 {
		timeout = s.timeout
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

// Navigate navigates the page to url, then waits briefly for the network to settle.
func (s *PlaywrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigateResult, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	waitUntil := playwright.WaitUntilState("domcontentloaded")
	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   s.millis(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}

	result := &NavigateResult{}
	if resp != nil {
		result.StatusCode = resp.Status()
		if !resp.Ok() {
			return nil, fmt.Errorf("%w: %s returned status %d", ErrNavigation, url, resp.Status())
		}
	}

	// Best effort: slow trackers must not fail an otherwise loaded page
	settle := playwright.LoadState("networkidle")
	_ = s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &settle,
		Timeout: playwright.Float(float64(DefaultSettleTimeout.Milliseconds())),
	})

	result.FinalURL = s.page.URL()
	result.Title, _ = s.page.Title()
	return result, nil
}

// Click clicks the first element matching selector.
func (s *PlaywrightSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	loc, err := s.locate(selector, timeout)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: s.millis(timeout)}); err != nil {
		return actionError("click", selector, err)
	}
	return nil
}

// Type fills the first element matching selector with text.
func (s *PlaywrightSession) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	loc, err := s.locate(selector, timeout)
	if err != nil {
		return err
	}
	if err := loc.Fill(text, playwright.LocatorFillOptions{Timeout: s.millis(timeout)}); err != nil {
		return actionError("type", selector, err)
	}
	return nil
}

// locate waits for selector to be attached and returns its first match.
func (s *PlaywrightSession) locate(selector string, timeout time.Duration) (playwright.Locator, error) {
	loc := s.page.Locator(selector).First()
	attached := playwright.WaitForSelectorState("attached")
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   &attached,
		Timeout: s.millis(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrElementNotFound, selector, err)
	}
	return loc, nil
}

func actionError(action, selector string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s %s", ErrActionTimeout, action, selector)
	}
	return fmt.Errorf("%s %s failed: %w", action, selector, err)
}

// Wait pauses for d or until ctx is done.
func (s *PlaywrightSession) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observe reads the page HTML and extracts an Observation from it.
func (s *PlaywrightSession) Observe(ctx context.Context) (*types.Observation, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	content, err := s.page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: page content: %v", ErrCapture, err)
	}
	title, err := s.page.Title()
	if err != nil {
		return nil, fmt.Errorf("%w: page title: %v", ErrCapture, err)
	}

	obs, err := ExtractObservation(s.page.URL(), title, content, s.limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return obs, nil
}

// Screenshot captures the visible viewport as PNG.
func (s *PlaywrightSession) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Timeout:  s.millis(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", ErrCapture, err)
	}
	return data, nil
}

// Close closes the page, context and browser. Safe to call multiple times.
func (s *PlaywrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		var errs []error
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.context.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
