package model

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of the AI assistant transcript.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// TS is milliseconds since the Unix epoch.
	TS int64 `json:"ts"`
}

// ChatTurn is the wire form of a message sent to the completion endpoint.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Messages    []ChatTurn `json:"messages"`
	Stream      bool       `json:"stream"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
}

// ChatCompletion is the non-streaming response of POST /ai/chat.
type ChatCompletion struct {
	Content string `json:"content"`
	Detail  string `json:"detail"`
}

// Text returns the completion content, falling back to the detail text.
func (c ChatCompletion) Text() string {
	if c.Content != "" {
		return c.Content
	}
	return c.Detail
}
