// Package tokenizer counts tokens for prompt budgeting.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/webpilot/pkg/types"
)

const (
	// DefaultEncoding is the encoding used by the gpt-4 and gpt-4o families
	DefaultEncoding = "cl100k_base"

	// tokensPerMessage approximates the framing overhead of one chat message
	tokensPerMessage = 4
)

// Tokenizer counts tokens with tiktoken. A nil *Tokenizer, or one whose
// encoding failed to load, estimates four characters per token.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding.
func New() (*Tokenizer, error) {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding loads the named tiktoken encoding.
func NewWithEncoding(name string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if t == nil || t.enc == nil {
		return estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the tokens of a conversation including per-message overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		if m == nil {
			continue
		}
		total += tokensPerMessage + t.CountTokens(string(m.Role)) + t.CountTokens(m.Content)
	}
	return total
}

func estimate(text string) int {
	n := (len([]rune(text)) + 3) / 4
	if n == 0 {
		n = 1
	}
	return n
}
