// Package parser provides utilities for parsing structured content from LLM streams.
package parser

import (
	"strings"

	"github.com/entrhq/webpilot/pkg/llm"
)

const (
	openThinking  = "<thinking>"
	closeThinking = "</thinking>"
)

// ThinkingParser separates <thinking>...</thinking> sections from answer
// content in a stream. Tags may be split across chunks; text that only looks
// like the start of a tag is held back until it can be classified.
type ThinkingParser struct {
	pending    strings.Builder
	inThinking bool
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse consumes one content chunk. Either return value is nil when the
// chunk produced no content of that type.
func (p *ThinkingParser) Parse(content string) (thinkingChunk, messageChunk *llm.StreamChunk) {
	var thinking, message strings.Builder
	emit := func(s string) {
		if p.inThinking {
			thinking.WriteString(s)
		} else {
			message.WriteString(s)
		}
	}

	for _, ch := range content {
		if p.pending.Len() == 0 && ch != '<' {
			emit(string(ch))
			continue
		}

		if ch == '<' && p.pending.Len() > 0 {
			emit(p.pending.String())
			p.pending.Reset()
		}
		p.pending.WriteRune(ch)

		candidate := p.pending.String()
		switch {
		case candidate == openThinking:
			p.inThinking = true
			p.pending.Reset()
		case candidate == closeThinking:
			p.inThinking = false
			p.pending.Reset()
		case strings.HasPrefix(openThinking, candidate), strings.HasPrefix(closeThinking, candidate):
			// keep buffering
		default:
			emit(candidate)
			p.pending.Reset()
		}
	}

	return chunkOf(thinking.String(), llm.ContentTypeThinking), chunkOf(message.String(), llm.ContentTypeMessage)
}

// Flush returns held-back text at the end of a stream.
func (p *ThinkingParser) Flush() (thinkingChunk, messageChunk *llm.StreamChunk) {
	rest := p.pending.String()
	p.pending.Reset()
	if p.inThinking {
		return chunkOf(rest, llm.ContentTypeThinking), nil
	}
	return nil, chunkOf(rest, llm.ContentTypeMessage)
}

// IsInThinking returns true if currently parsing thinking content.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Reset resets the parser state for a new stream.
func (p *ThinkingParser) Reset() {
	p.pending.Reset()
	p.inThinking = false
}

// SplitThinking separates a complete response into its thinking and answer parts.
func SplitThinking(text string) (thinking, answer string) {
	p := NewThinkingParser()
	var t, m strings.Builder
	collect := func(tc, mc *llm.StreamChunk) {
		if tc != nil {
			t.WriteString(tc.Content)
		}
		if mc != nil {
			m.WriteString(mc.Content)
		}
	}
	collect(p.Parse(text))
	collect(p.Flush())
	return strings.TrimSpace(t.String()), strings.TrimSpace(m.String())
}

func chunkOf(content string, typ llm.ContentType) *llm.StreamChunk {
	if content == "" {
		return nil
	}
	return &llm.StreamChunk{Content: content, Type: typ}
}
