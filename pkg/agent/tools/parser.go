package tools

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/entrhq/webpilot/pkg/types"
)

const (
	maxPlanSize      = 1024 * 1024 // 1MB limit for a single plan response
	argumentsTagName = "arguments"
)

var (
	// fencedJSONRegex matches ```json ... ``` or ``` ... ``` blocks
	fencedJSONRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

	toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

	// ampersandEntityRegex matches ampersands that are already part of XML entities
	// to avoid double-escaping them. Matches: &amp; &lt; &gt; &quot; &apos; &#123; &#xAB;
	ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)
)

// plan is the JSON shape a planner response is expected to carry.
type plan struct {
	Reasoning       string                 `json:"reasoning"`
	ToolName        string                 `json:"tool_name"`
	Parameters      map[string]interface{} `json:"parameters"`
	ExpectedOutcome string                 `json:"expected_outcome"`
}

// xmlToolCall is the alternative XML shape:
//
//	<tool>
//	<tool_name>click</tool_name>
//	<arguments>
//	  <selector>#submit</selector>
//	</arguments>
//	</tool>
type xmlToolCall struct {
	XMLName   xml.Name `xml:"tool"`
	ToolName  string   `xml:"tool_name"`
	Arguments struct {
		InnerXML []byte `xml:",innerxml"`
	} `xml:"arguments"`
}

// ParseToolCall extracts a tool call from a model response. It accepts, in
// order: the whole response as a JSON object, a fenced JSON block, the first
// balanced JSON object embedded in prose, and an XML <tool> element.
// A response naming no tool is a planning_error.
func ParseToolCall(text string) (*types.ToolCall, error) {
	if len(text) > maxPlanSize {
		return nil, types.NewError(types.ErrorKindPlanning, "plan exceeds maximum size of %d bytes", maxPlanSize)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, types.NewError(types.ErrorKindPlanning, "empty plan response")
	}

	candidates := []string{trimmed}
	for _, m := range fencedJSONRegex.FindAllStringSubmatch(trimmed, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if obj, ok := firstJSONObject(trimmed); ok {
		candidates = append(candidates, obj)
	}

	var lastErr error
	for _, c := range candidates {
		call, err := parseJSONPlan(c)
		if err == nil {
			return call, nil
		}
		lastErr = err
	}

	if toolRegex.MatchString(trimmed) {
		return parseXMLPlan(trimmed)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return nil, types.WrapError(types.ErrorKindPlanning, lastErr, "could not parse plan")
}

func parseJSONPlan(s string) (*types.ToolCall, error) {
	if !strings.HasPrefix(s, "{") {
		return nil, fmt.Errorf("not a JSON object")
	}
	var p plan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ToolName) == "" {
		return nil, fmt.Errorf("tool_name is required")
	}
	if p.Parameters == nil {
		p.Parameters = map[string]interface{}{}
	}
	return &types.ToolCall{
		ToolName:        strings.TrimSpace(p.ToolName),
		Parameters:      p.Parameters,
		Reasoning:       p.Reasoning,
		ExpectedOutcome: p.ExpectedOutcome,
	}, nil
}

func parseXMLPlan(text string) (*types.ToolCall, error) {
	loc := toolRegex.FindStringIndex(text)
	toolXML := text[loc[0]:loc[1]]

	var tc xmlToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &tc); err != nil {
		snippet := toolXML
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, types.WrapError(types.ErrorKindPlanning, err, "failed to unmarshal tool call XML: "+snippet)
	}
	if strings.TrimSpace(tc.ToolName) == "" {
		return nil, types.NewError(types.ErrorKindPlanning, "tool_name is required in tool call")
	}

	args := append([]byte("<arguments>"), tc.Arguments.InnerXML...)
	args = append(args, []byte("</arguments>")...)
	params, err := XMLToMap(escapeUnescapedAmpersands(args))
	if err != nil {
		return nil, types.WrapError(types.ErrorKindPlanning, err, "invalid tool arguments")
	}

	return &types.ToolCall{
		ToolName:   strings.TrimSpace(tc.ToolName),
		Parameters: params,
		Reasoning:  strings.TrimSpace(text[:loc[0]]),
	}, nil
}

// firstJSONObject returns the first balanced {...} span in s, skipping
// braces inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// UnmarshalXMLWithFallback attempts to unmarshal XML, with fallback to
// escape unescaped ampersands if the initial parse fails.
// This improves robustness when LLMs generate unescaped & characters.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities (&amp;, &lt;, &gt;, &quot;, &apos;, &#..;)
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityPositions := make(map[int]bool)
	for _, match := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityPositions[match[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityPositions[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}
	return []byte(result.String())
}

// XMLToMap converts an <arguments> element into a flat map of its direct
// children's text content.
func XMLToMap(data []byte) (map[string]interface{}, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	result := make(map[string]interface{})

	var currentPath []string
	var currentText strings.Builder

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			currentPath = append(currentPath, t.Name.Local)
			if t.Name.Local == argumentsTagName && len(currentPath) == 1 {
				continue
			}
			currentText.Reset()

		case xml.EndElement:
			if len(currentPath) == 0 {
				continue
			}
			elementName := currentPath[len(currentPath)-1]
			currentPath = currentPath[:len(currentPath)-1]
			if elementName == argumentsTagName && len(currentPath) == 0 {
				continue
			}

			// Only direct children of <arguments>
			if len(currentPath) == 1 && currentPath[0] == argumentsTagName {
				if text := strings.TrimSpace(currentText.String()); text != "" {
					result[elementName] = text
				}
			}
			currentText.Reset()

		case xml.CharData:
			currentText.Write(t)
		}
	}

	return result, nil
}
