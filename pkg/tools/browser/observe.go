package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/entrhq/webpilot/pkg/types"
)

const maxElementTextLength = 100

// ExtractObservation builds an Observation from a page's HTML.
//
// Non-rendered content (scripts, styles, templates, hidden subtrees) is
// dropped before anything is extracted. Interactive elements are reported
// in document order up to limits.MaxElements, and the text preview holds at
// most limits.PreviewChars characters of the visible text.
func ExtractObservation(pageURL, title, rawHTML string, limits ObserveLimits) (*types.Observation, error) {
	limits = limits.withDefaults()

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if title == "" {
		title = extractTitle(doc)
	}

	ex := &extractor{
		index:  buildSelectorIndex(doc),
		limit:  limits.MaxElements,
		obs:    &types.Observation{URL: pageURL, Title: title, Elements: []types.InteractiveElement{}},
		chunks: make([]string, 0, 64),
	}
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	ex.walk(root)

	text := strings.Join(ex.chunks, " ")
	ex.obs.TextLength = utf8.RuneCountInString(text)
	ex.obs.TextPreview = truncateRunes(text, limits.PreviewChars)
	return ex.obs, nil
}

type extractor struct {
	index  *selectorIndex
	limit  int
	obs    *types.Observation
	chunks []string
}

func (ex *extractor) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		if text := collapseSpace(n.Data); text != "" {
			ex.chunks = append(ex.chunks, text)
		}
		return
	case html.ElementNode:
		if isSkippedElement(n.Data) || isHidden(n) {
			return
		}
		if len(ex.obs.Elements) < ex.limit {
			if el, ok := ex.interactiveElement(n); ok {
				ex.obs.Elements = append(ex.obs.Elements, el)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		ex.walk(c)
	}
}

func (ex *extractor) interactiveElement(n *html.Node) (types.InteractiveElement, bool) {
	kind, ok := classify(n)
	if !ok {
		return types.InteractiveElement{}, false
	}

	el := types.InteractiveElement{
		Kind:     kind,
		Selector: ex.index.selectorFor(n),
	}
	switch kind {
	case types.ElementKindLink:
		el.Href = getAttr(n, "href")
		el.Text = elementText(n)
	case types.ElementKindInput:
		el.InputType = inputType(n)
		el.Placeholder = getAttr(n, "placeholder")
		el.Name = getAttr(n, "name")
		el.Text = firstNonEmpty(getAttr(n, "aria-label"), getAttr(n, "value"), el.Placeholder, labelText(n))
	default:
		el.Text = firstNonEmpty(elementText(n), getAttr(n, "value"), getAttr(n, "aria-label"), getAttr(n, "title"))
	}
	el.Text = truncateRunes(el.Text, maxElementTextLength)
	return el, true
}

// classify reports the kind of an interactive element, or false when n is not interactive.
func classify(n *html.Node) (types.ElementKind, bool) {
	switch n.Data {
	case "button":
		return types.ElementKindButton, true
	case "a":
		if hasAttr(n, "href") {
			return types.ElementKindLink, true
		}
	case "input":
		switch inputType(n) {
		case "button", "submit", "reset", "image":
			return types.ElementKindButton, true
		default:
			return types.ElementKindInput, true
		}
	case "textarea", "select":
		return types.ElementKindInput, true
	}

	switch strings.ToLower(getAttr(n, "role")) {
	case "button":
		return types.ElementKindButton, true
	case "link":
		return types.ElementKindLink, true
	case "textbox", "searchbox", "combobox":
		return types.ElementKindInput, true
	}
	if hasAttr(n, "onclick") || strings.EqualFold(getAttr(n, "contenteditable"), "true") {
		return types.ElementKindOther, true
	}
	return "", false
}

func inputType(n *html.Node) string {
	if n.Data != "input" {
		return n.Data
	}
	t := strings.ToLower(getAttr(n, "type"))
	if t == "" {
		return "text"
	}
	return t
}

// isSkippedElement returns true for elements whose content is never rendered as text
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "iframe", "embed", "object", "svg", "head", "meta", "link":
		return true
	}
	return false
}

// isHidden reports whether n and its subtree are not rendered.
func isHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") || getAttr(n, "aria-hidden") == "true" {
		return true
	}
	if n.Data == "input" && strings.EqualFold(getAttr(n, "type"), "hidden") {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(getAttr(n, "style"), " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// elementText returns the visible text inside n.
func elementText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			if t := collapseSpace(c.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if isSkippedElement(c.Data) || isHidden(c) {
				return
			}
			if c.Data == "img" {
				if alt := collapseSpace(getAttr(c, "alt")); alt != "" {
					parts = append(parts, alt)
				}
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return strings.Join(parts, " ")
}

// labelText returns the text of the <label for=id> associated with n, if any.
func labelText(n *html.Node) string {
	id := getAttr(n, "id")
	if id == "" {
		return ""
	}
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	var found string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if found != "" {
			return
		}
		if c.Type == html.ElementNode && c.Data == "label" && getAttr(c, "for") == id {
			found = elementText(c)
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	if n := findElement(doc, "title"); n != nil && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
