package browser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var cssIdentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// selectorIndex counts attribute values across a document so that a
// selector is only built from an attribute when the value is unique.
type selectorIndex struct {
	ids     map[string]int
	names   map[string]int // keyed by tag + "|" + name
	testIDs map[string]int
}

func buildSelectorIndex(doc *html.Node) *selectorIndex {
	ix := &selectorIndex{
		ids:     make(map[string]int),
		names:   make(map[string]int),
		testIDs: make(map[string]int),
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				ix.ids[id]++
			}
			if name := getAttr(n, "name"); name != "" {
				ix.names[n.Data+"|"+name]++
			}
			if tid := getAttr(n, "data-testid"); tid != "" {
				ix.testIDs[tid]++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return ix
}

// selectorFor returns a CSS selector that resolves to n. The result only
// depends on the document, so an unchanged page yields the same selector.
func (ix *selectorIndex) selectorFor(n *html.Node) string {
	tag := n.Data

	if id := getAttr(n, "id"); id != "" && ix.ids[id] == 1 {
		return idSelector(tag, id)
	}
	if name := getAttr(n, "name"); name != "" && ix.names[tag+"|"+name] == 1 {
		return fmt.Sprintf("%s[name=%s]", tag, quoteAttr(name))
	}
	if tid := getAttr(n, "data-testid"); tid != "" && ix.testIDs[tid] == 1 {
		return fmt.Sprintf("[data-testid=%s]", quoteAttr(tid))
	}
	return ix.structuralPath(n)
}

// structuralPath builds a child-combinator path of :nth-of-type segments,
// anchored at the nearest ancestor with a unique id or at the root element.
func (ix *selectorIndex) structuralPath(n *html.Node) string {
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur != n {
			if id := getAttr(cur, "id"); id != "" && ix.ids[id] == 1 {
				segments = append(segments, idSelector(cur.Data, id))
				break
			}
		}
		if cur.Parent == nil || cur.Parent.Type != html.ElementNode {
			segments = append(segments, cur.Data)
			break
		}
		if cur.Data == "body" || cur.Data == "head" {
			segments = append(segments, cur.Data)
			continue
		}
		segments = append(segments, fmt.Sprintf("%s:nth-of-type(%d)", cur.Data, nthOfType(cur)))
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

func nthOfType(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			idx++
		}
	}
	return idx
}

func idSelector(tag, id string) string {
	if cssIdentRegex.MatchString(id) {
		return "#" + id
	}
	return fmt.Sprintf("%s[id=%s]", tag, quoteAttr(id))
}

func quoteAttr(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
