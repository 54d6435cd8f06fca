package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SessionManager owns the Playwright driver and hands out one isolated
// browser session per task run. It implements Provider.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*PlaywrightSession
	playwright  *playwright.Playwright
	opts        SessionOptions
	maxSessions int
	initialized bool
}

// NewSessionManager creates a new session manager.
func NewSessionManager(opts SessionOptions) *SessionManager {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.BrowserType == "" {
		opts.BrowserType = "chromium"
	}
	opts.Limits = opts.Limits.withDefaults()

	return &SessionManager{
		sessions:    make(map[string]*PlaywrightSession),
		opts:        opts,
		maxSessions: DefaultMaxSessions,
	}
}

// Initialize installs and starts the Playwright driver.
// This must be called before acquiring any sessions.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{m.opts.BrowserType},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Acquire launches a new browser session owned by owner.
func (m *SessionManager) Acquire(ctx context.Context, owner string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}
	if _, exists := m.sessions[owner]; exists {
		return nil, fmt.Errorf("session for %q already exists", owner)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}

	browserType, err := m.browserType()
	if err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
	}
	if m.opts.BrowserType == "chromium" {
		launchOpts.Args = []string{"--no-sandbox", "--disable-dev-shm-usage"}
	}
	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
	}
	if m.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(m.opts.UserAgent)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opts.Timeout.Milliseconds()))

	now := time.Now()
	session := &PlaywrightSession{
		owner:      owner,
		browser:    browser,
		context:    bctx,
		page:       page,
		timeout:    m.opts.Timeout,
		limits:     m.opts.Limits,
		createdAt:  now,
		lastUsedAt: now,
	}
	m.sessions[owner] = session
	return session, nil
}

func (m *SessionManager) browserType() (playwright.BrowserType, error) {
	switch m.opts.BrowserType {
	case "chromium":
		return m.playwright.Chromium, nil
	case "firefox":
		return m.playwright.Firefox, nil
	case "webkit":
		return m.playwright.WebKit, nil
	}
	return nil, fmt.Errorf("unsupported browser type %q", m.opts.BrowserType)
}

// Release closes and forgets the session owned by owner.
func (m *SessionManager) Release(owner string) error {
	m.mu.Lock()
	session, exists := m.sessions[owner]
	delete(m.sessions, owner)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("session for %q not found", owner)
	}
	return session.Close()
}

// ActiveSessions returns the number of sessions currently held.
func (m *SessionManager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SetMaxSessions sets the maximum number of concurrent sessions. A value
// below 1 restores DefaultMaxSessions.
func (m *SessionManager) SetMaxSessions(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max < 1 {
		max = DefaultMaxSessions
	}
	m.maxSessions = max
}

// Shutdown closes all sessions and stops Playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for owner, session := range m.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", owner, err))
		}
		delete(m.sessions, owner)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}

	return errors.Join(errs...)
}
