// Package browser provides the browser session capability used by task runs.
//
// A Session is an exclusive handle to one isolated browser context. It
// exposes navigate, click, type, wait, observe and screenshot primitives,
// each bounded by its own timeout. Failures wrap the sentinel errors
// ErrNavigation, ErrElementNotFound, ErrActionTimeout and ErrCapture.
//
// # Sessions
//
// SessionManager owns the Playwright driver and launches one browser per
// acquired session:
//
//	manager := browser.NewSessionManager(browser.SessionOptions{Headless: true})
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.Acquire(ctx, taskID)
//	if err != nil {
//	    return err
//	}
//	defer manager.Release(taskID)
//
// # Observations
//
// Observe reads the page HTML and passes it through ExtractObservation,
// which drops non-rendered nodes, lists interactive elements in document
// order and caps both the element list and the text preview. Element
// selectors are derived from the DOM alone, so an unchanged page always
// yields the same selectors.
package browser
