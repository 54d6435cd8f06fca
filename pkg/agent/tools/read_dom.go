package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/tools/browser"
	"github.com/entrhq/webpilot/pkg/types"
)

const readDOMToolName = "read_dom"

// ReadDOMTool reads the current page structure: interactive elements and a
// text preview. Its observation is reused by the caller.
type ReadDOMTool struct{}

// NewReadDOMTool creates a read_dom tool
func NewReadDOMTool() *ReadDOMTool {
	return &ReadDOMTool{}
}

func (t *ReadDOMTool) Name() string {
	return readDOMToolName
}

func (t *ReadDOMTool) Description() string {
	return "Read the current page: title, URL, interactive elements with selectors and a preview of the visible text."
}

func (t *ReadDOMTool) Params() []ParamSpec {
	return nil
}

func (t *ReadDOMTool) Timeout() time.Duration {
	return browser.DefaultTimeout
}

func (t *ReadDOMTool) Execute(ctx context.Context, session browser.Session, _ Params) (*Result, error) {
	obs, err := session.Observe(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{
		Output:      FormatObservation(obs),
		Observation: obs,
		Metadata: map[string]interface{}{
			"buttons": obs.CountKind(types.ElementKindButton),
			"links":   obs.CountKind(types.ElementKindLink),
			"inputs":  obs.CountKind(types.ElementKindInput),
		},
	}, nil
}

func (t *ReadDOMTool) IsLoopBreaking() bool {
	return false
}

// FormatObservation renders an observation as plain text for prompts and results.
func FormatObservation(obs *types.Observation) string {
	if obs == nil {
		return "(no observation)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", obs.URL, obs.Title)
	if len(obs.Elements) == 0 {
		b.WriteString("Interactive elements: none\n")
	} else {
		b.WriteString("Interactive elements:\n")
		for i, el := range obs.Elements {
			fmt.Fprintf(&b, "%d. [%s] %q selector=%s", i+1, el.Kind, el.Text, el.Selector)
			if el.Href != "" {
				fmt.Fprintf(&b, " href=%s", el.Href)
			}
			if el.InputType != "" {
				fmt.Fprintf(&b, " type=%s", el.InputType)
			}
			if el.Placeholder != "" {
				fmt.Fprintf(&b, " placeholder=%q", el.Placeholder)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Text preview: %s", obs.TextPreview)
	return b.String()
}
