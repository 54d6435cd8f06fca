package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// FormatToolSchema renders one tool for the system prompt: name,
// description, parameters and an example plan.
func FormatToolSchema(tool tools.Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", tool.Name())
	fmt.Fprintf(&b, "%s\n", tool.Description())
	if tool.IsLoopBreaking() {
		b.WriteString("(loop-breaking: ends the task when it succeeds)\n")
	}

	params := tool.Params()
	if len(params) == 0 {
		b.WriteString("Parameters: none\n")
	} else {
		b.WriteString("Parameters:\n")
		for _, p := range params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", p.Name, p.Type, req, p.Description)
		}
	}

	fmt.Fprintf(&b, "Example:\n%s\n", GenerateJSONExample(tool))
	return b.String()
}

// FormatToolSchemas renders every tool, separated by blank lines.
func FormatToolSchemas(list []tools.Tool) string {
	sections := make([]string, 0, len(list))
	for _, t := range list {
		sections = append(sections, FormatToolSchema(t))
	}
	return strings.Join(sections, "\n")
}

// GenerateJSONExample creates an example plan selecting tool, filling
// required parameters with placeholder values of the declared type.
func GenerateJSONExample(tool tools.Tool) string {
	params := make(map[string]interface{})
	for _, p := range tool.Params() {
		if !p.Required {
			continue
		}
		params[p.Name] = exampleValue(p)
	}

	example := struct {
		Reasoning  string                 `json:"reasoning"`
		ToolName   string                 `json:"tool_name"`
		Parameters map[string]interface{} `json:"parameters"`
	}{
		Reasoning:  "...",
		ToolName:   tool.Name(),
		Parameters: params,
	}
	data, err := json.Marshal(example)
	if err != nil {
		return ""
	}
	return string(data)
}

func exampleValue(p tools.ParamSpec) interface{} {
	switch p.Type {
	case tools.ParamNumber:
		return 1.5
	case tools.ParamInteger:
		return 1
	case tools.ParamBoolean:
		return true
	}
	switch p.Name {
	case "url":
		return "https://example.com"
	case "selector":
		return "#submit"
	}
	return "..."
}
