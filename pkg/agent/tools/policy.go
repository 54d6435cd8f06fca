package tools

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"

	"github.com/entrhq/webpilot/pkg/types"
)

// URLPolicy decides which URLs the navigate tool may open. Patterns are
// globs matched against the full URL, e.g. "https://*.example.com/*".
// A URL matching any denied pattern is refused; when allowed patterns are
// configured, a URL must match at least one of them.
type URLPolicy struct {
	allow    []glob.Glob
	deny     []glob.Glob
	allowRaw []string
	denyRaw  []string
}

// NewURLPolicy compiles the allow and deny patterns.
func NewURLPolicy(allowed, denied []string) (*URLPolicy, error) {
	p := &URLPolicy{allowRaw: allowed, denyRaw: denied}
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed URL pattern %q: %w", pattern, err)
		}
		p.allow = append(p.allow, g)
	}
	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied URL pattern %q: %w", pattern, err)
		}
		p.deny = append(p.deny, g)
	}
	return p, nil
}

// Check returns a validation error when rawURL may not be opened.
// A nil policy only enforces an absolute http(s) URL.
func (p *URLPolicy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.NewError(types.ErrorKindValidation, "invalid url %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return types.NewError(types.ErrorKindValidation, "url %q must use http or https", rawURL)
	}
	if u.Host == "" {
		return types.NewError(types.ErrorKindValidation, "url %q has no host", rawURL)
	}
	if p == nil {
		return nil
	}

	for i, g := range p.deny {
		if g.Match(rawURL) {
			return types.NewError(types.ErrorKindValidation, "url %q is denied by pattern %q", rawURL, p.denyRaw[i])
		}
	}
	if len(p.allow) == 0 {
		return nil
	}
	for _, g := range p.allow {
		if g.Match(rawURL) {
			return nil
		}
	}
	return types.NewError(types.ErrorKindValidation, "url %q is not in the allowed list", rawURL)
}
