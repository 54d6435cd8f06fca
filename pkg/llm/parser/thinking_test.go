package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func parseAll(chunks []string) (thinking, message string, inThinking bool) {
	p := NewThinkingParser()
	for _, c := range chunks {
		tc, mc := p.Parse(c)
		if tc != nil {
			thinking += tc.Content
		}
		if mc != nil {
			message += mc.Content
		}
	}
	inThinking = p.IsInThinking()
	tc, mc := p.Flush()
	if tc != nil {
		thinking += tc.Content
	}
	if mc != nil {
		message += mc.Content
	}
	return thinking, message, inThinking
}

func TestThinkingParser(t *testing.T) {
	tests := []struct {
		name         string
		chunks       []string
		wantThinking string
		wantMessage  string
	}{
		{
			name:        "no tags",
			chunks:      []string{`{"tool_name":`, ` "read_dom"}`},
			wantMessage: `{"tool_name": "read_dom"}`,
		},
		{
			name:         "single chunk",
			chunks:       []string{"<thinking>look first</thinking>{}"},
			wantThinking: "look first",
			wantMessage:  "{}",
		},
		{
			name:         "tags split across chunks",
			chunks:       []string{"<thin", "king>plan", " it</th", "inking>", "answer"},
			wantThinking: "plan it",
			wantMessage:  "answer",
		},
		{
			name:         "comparison operators inside thinking",
			chunks:       []string{"<thinking>", "if x>3 and i<10 ", "</thinking>", "\n<tool>click</tool>"},
			wantThinking: "if x>3 and i<10 ",
			wantMessage:  "\n<tool>click</tool>",
		},
		{
			name:         "double angle bracket",
			chunks:       []string{"a <<thinking>b"},
			wantThinking: "b",
			wantMessage:  "a <",
		},
		{
			name:        "unfinished tag flushed as text",
			chunks:      []string{"value <thin"},
			wantMessage: "value <thin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thinking, message, _ := parseAll(tt.chunks)
			assert.Equal(t, tt.wantThinking, thinking)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestThinkingParserLeavesThinkingMode(t *testing.T) {
	_, _, inThinking := parseAll([]string{"<thinking>", "x<y", "</thinking>"})
	assert.False(t, inThinking)

	_, _, inThinking = parseAll([]string{"<thinking>", "still going"})
	assert.True(t, inThinking)
}

func TestThinkingParserReset(t *testing.T) {
	p := NewThinkingParser()
	p.Parse("<thinking>abc")
	assert.True(t, p.IsInThinking())

	p.Reset()
	assert.False(t, p.IsInThinking())
	_, mc := p.Parse("plain")
	assert.Equal(t, "plain", mc.Content)
}

func TestSplitThinking(t *testing.T) {
	thinking, answer := SplitThinking("<thinking>\nThe login form is visible.\n</thinking>\n{\"tool_name\":\"click\"}")
	assert.Equal(t, "The login form is visible.", thinking)
	assert.Equal(t, `{"tool_name":"click"}`, answer)
}
