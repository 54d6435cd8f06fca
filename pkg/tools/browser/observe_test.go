package browser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

const loginPage = `<html>
<head>
	<title>Sign in</title>
	<script>window.secret = "do not show";</script>
	<style>.x { color: red; }</style>
</head>
<body>
	<h1>Welcome back</h1>
	<form action="/login">
		<label for="user">Username</label>
		<input type="text" id="user" name="username" placeholder="you@example.com">
		<input type="password" name="password">
		<input type="hidden" name="csrf" value="token">
		<button type="submit">Log in</button>
	</form>
	<a href="/forgot">Forgot password?</a>
	<div hidden><a href="/secret">Hidden link</a></div>
	<noscript>Enable JavaScript</noscript>
</body>
</html>`

func TestExtractObservation(t *testing.T) {
	obs, err := ExtractObservation("https://example.com/login", "", loginPage, ObserveLimits{})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/login", obs.URL)
	assert.Equal(t, "Sign in", obs.Title)

	require.Len(t, obs.Elements, 4)
	assert.Equal(t, types.InteractiveElement{
		Kind:        types.ElementKindInput,
		Text:        "you@example.com",
		Selector:    "#user",
		InputType:   "text",
		Placeholder: "you@example.com",
		Name:        "username",
	}, obs.Elements[0])

	assert.Equal(t, types.ElementKindInput, obs.Elements[1].Kind)
	assert.Equal(t, "input[name='password']", obs.Elements[1].Selector)
	assert.Equal(t, "password", obs.Elements[1].InputType)

	assert.Equal(t, types.ElementKindButton, obs.Elements[2].Kind)
	assert.Equal(t, "Log in", obs.Elements[2].Text)

	assert.Equal(t, types.ElementKindLink, obs.Elements[3].Kind)
	assert.Equal(t, "/forgot", obs.Elements[3].Href)
	assert.Equal(t, "Forgot password?", obs.Elements[3].Text)

	assert.Contains(t, obs.TextPreview, "Welcome back")
	assert.Contains(t, obs.TextPreview, "Forgot password?")
	for _, unwanted := range []string{"do not show", "color: red", "Hidden link", "Enable JavaScript", "token"} {
		assert.NotContains(t, obs.TextPreview, unwanted)
	}
}

func TestExtractObservationKeepsGivenTitle(t *testing.T) {
	obs, err := ExtractObservation("https://example.com", "Live title", loginPage, ObserveLimits{})
	require.NoError(t, err)
	assert.Equal(t, "Live title", obs.Title)
}

func TestExtractObservationCaps(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, `<p>Paragraph %d with some filler text ünïcödé</p><button>Action %d</button><a href="/p/%d">Link %d</a>`, i, i, i, i)
	}
	b.WriteString("</body></html>")

	tests := []struct {
		name   string
		limits ObserveLimits
		want   ObserveLimits
	}{
		{"defaults", ObserveLimits{}, ObserveLimits{MaxElements: DefaultMaxElements, PreviewChars: DefaultPreviewChars}},
		{"custom", ObserveLimits{MaxElements: 3, PreviewChars: 40}, ObserveLimits{MaxElements: 3, PreviewChars: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := ExtractObservation("https://example.com", "", b.String(), tt.limits)
			require.NoError(t, err)

			assert.Len(t, obs.Elements, tt.want.MaxElements)
			assert.Equal(t, tt.want.PreviewChars, utf8.RuneCountInString(obs.TextPreview))
			assert.Greater(t, obs.TextLength, tt.want.PreviewChars)
			assert.True(t, utf8.ValidString(obs.TextPreview))
		})
	}
}

func TestExtractObservationEmptyPage(t *testing.T) {
	obs, err := ExtractObservation("about:blank", "", "", ObserveLimits{})
	require.NoError(t, err)
	assert.Empty(t, obs.Elements)
	assert.NotNil(t, obs.Elements)
	assert.Empty(t, obs.TextPreview)
	assert.Equal(t, 0, obs.TextLength)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantKind types.ElementKind
		wantText string
	}{
		{"submit input", `<input type="submit" value="Send">`, types.ElementKindButton, "Send"},
		{"image input", `<input type="image" alt="Go" title="Go">`, types.ElementKindButton, "Go"},
		{"textarea", `<textarea name="body" aria-label="Message"></textarea>`, types.ElementKindInput, "Message"},
		{"select", `<select name="country"><option>NL</option></select>`, types.ElementKindInput, ""},
		{"role button", `<div role="button">Menu</div>`, types.ElementKindButton, "Menu"},
		{"role link", `<span role="link">Docs</span>`, types.ElementKindLink, "Docs"},
		{"onclick", `<div onclick="go()">Card</div>`, types.ElementKindOther, "Card"},
		{"image link", `<a href="/home"><img src="logo.png" alt="Home"></a>`, types.ElementKindLink, "Home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := ExtractObservation("https://example.com", "", "<html><body>"+tt.html+"</body></html>", ObserveLimits{})
			require.NoError(t, err)
			require.NotEmpty(t, obs.Elements)
			assert.Equal(t, tt.wantKind, obs.Elements[0].Kind)
			assert.Equal(t, tt.wantText, obs.Elements[0].Text)
		})
	}
}

func TestNonInteractiveElementsIgnored(t *testing.T) {
	page := `<html><body><a name="anchor">No href</a><div>Plain</div><span style="display: none"><button>Ghost</button></span></body></html>`
	obs, err := ExtractObservation("https://example.com", "", page, ObserveLimits{})
	require.NoError(t, err)
	assert.Empty(t, obs.Elements)
	assert.Equal(t, "No href Plain", obs.TextPreview)
}
