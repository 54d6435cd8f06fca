// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewSystemMessage("You control a web browser."),
//	    types.NewUserMessage("Open example.com"),
//	})
package llm

import (
	"context"

	"github.com/entrhq/webpilot/pkg/types"
)

// ContentType distinguishes reasoning from answer content in a stream.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"
	ContentTypeThinking ContentType = "thinking"
)

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Type     ContentType
	Role     string
	Content  string
	Finished bool
	Error    error
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// IsThinking reports whether the chunk holds <thinking> content.
func (c *StreamChunk) IsThinking() bool {
	return c != nil && c.Type == ContentTypeThinking
}

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. Prompt construction and response parsing live in
// the planner, which keeps providers reusable and testable on their own.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response chunks.
	//
	// The channel is closed when streaming completes or an error occurs.
	// Stream-time errors are sent as chunks with Error set; the returned
	// error covers failures to start the stream.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// Collect drains a stream into a message. Thinking content is kept apart
// from the answer.
func Collect(stream <-chan *StreamChunk) (*types.Message, error) {
	msg := &types.Message{}
	var role string
	for chunk := range stream {
		if chunk.IsError() {
			// drain so the producer can exit
			for range stream {
			}
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.IsThinking() {
			msg.Thinking += chunk.Content
		} else {
			msg.Content += chunk.Content
		}
	}
	if role == "" {
		role = string(types.RoleAssistant)
	}
	msg.Role = types.MessageRole(role)
	return msg, nil
}
