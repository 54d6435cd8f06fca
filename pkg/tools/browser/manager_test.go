package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionManagerDefaults(t *testing.T) {
	m := NewSessionManager(SessionOptions{})

	assert.Equal(t, "chromium", m.opts.BrowserType)
	assert.Equal(t, DefaultTimeout, m.opts.Timeout)
	require.NotNil(t, m.opts.Viewport)
	assert.Equal(t, DefaultViewportWidth, m.opts.Viewport.Width)
	assert.Equal(t, DefaultViewportHeight, m.opts.Viewport.Height)
	assert.Equal(t, DefaultMaxElements, m.opts.Limits.MaxElements)
	assert.Equal(t, DefaultPreviewChars, m.opts.Limits.PreviewChars)
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestSetMaxSessions(t *testing.T) {
	m := NewSessionManager(SessionOptions{})
	assert.Equal(t, DefaultMaxSessions, m.maxSessions)

	m.SetMaxSessions(2)
	assert.Equal(t, 2, m.maxSessions)

	m.SetMaxSessions(0)
	assert.Equal(t, DefaultMaxSessions, m.maxSessions)
}

func TestAcquireRequiresInitialize(t *testing.T) {
	m := NewSessionManager(SessionOptions{Headless: true})

	_, err := m.Acquire(context.Background(), "task-1")
	assert.ErrorContains(t, err, "not initialized")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Acquire(ctx, "task-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseUnknownSession(t *testing.T) {
	m := NewSessionManager(SessionOptions{})
	assert.Error(t, m.Release("nobody"))
	assert.NoError(t, m.Shutdown())
}

func TestSessionWait(t *testing.T) {
	s := &PlaywrightSession{}

	start := time.Now()
	require.NoError(t, s.Wait(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Wait(ctx, time.Hour), context.Canceled)
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s := &PlaywrightSession{closed: true}

	_, err := s.Observe(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Click(context.Background(), "#x", 0), ErrSessionClosed)
	assert.ErrorIs(t, s.Type(context.Background(), "#x", "v", 0), ErrSessionClosed)
	_, err = s.Navigate(context.Background(), "https://example.com", 0)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Screenshot(context.Background(), 0)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
