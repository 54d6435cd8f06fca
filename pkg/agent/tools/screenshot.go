package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/security/workspace"
	"github.com/entrhq/webpilot/pkg/tools/browser"
)

const screenshotToolName = "screenshot"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ScreenshotTool captures the viewport, optionally saving it to a directory.
type ScreenshotTool struct {
	dir string
}

// NewScreenshotTool creates a screenshot tool. An empty dir keeps captures in memory only.
func NewScreenshotTool(dir string) *ScreenshotTool {
	return &ScreenshotTool{dir: dir}
}

func (t *ScreenshotTool) Name() string {
	return screenshotToolName
}

func (t *ScreenshotTool) Description() string {
	return "Capture a PNG screenshot of the visible page."
}

func (t *ScreenshotTool) Params() []ParamSpec {
	return []ParamSpec{
		{Name: "name", Type: ParamString, Description: "Optional file name for the capture"},
	}
}

func (t *ScreenshotTool) Timeout() time.Duration {
	return browser.DefaultTimeout
}

func (t *ScreenshotTool) Execute(ctx context.Context, session browser.Session, params Params) (*Result, error) {
	data, err := session.Screenshot(ctx, 0)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{"bytes": len(data)}
	if t.dir == "" {
		return &Result{Output: fmt.Sprintf("Captured screenshot (%d bytes)", len(data)), Metadata: metadata}, nil
	}

	name := unsafeFileChars.ReplaceAllString(params.String("name"), "_")
	if name == "" || name == "_" {
		name = uuid.New().String()
	}
	if filepath.Ext(name) != ".png" {
		name += ".png"
	}

	guard, err := workspace.NewGuard(t.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare screenshot directory: %w", err)
	}
	path, err := guard.ResolvePath(name)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write screenshot: %w", err)
	}
	metadata["path"] = path
	return &Result{Output: fmt.Sprintf("Saved screenshot to %s (%d bytes)", path, len(data)), Metadata: metadata}, nil
}

func (t *ScreenshotTool) IsLoopBreaking() bool {
	return false
}
