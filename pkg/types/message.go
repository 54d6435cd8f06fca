package types

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a model conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// Thinking holds reasoning the model emitted inside <thinking> tags
	Thinking string `json:"thinking,omitempty"`
}

// NewSystemMessage creates a system message
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Provider          string                 `json:"provider"`
	Name              string                 `json:"name"`
	MaxTokens         int                    `json:"max_tokens"`
	SupportsStreaming bool                   `json:"supports_streaming"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}
