package ai

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/alloci/internal/model"
)

// Transcript is the in-memory, append-only message history of a chat.
// Only the trailing assistant message may grow while a reply streams.
type Transcript struct {
	mu       sync.Mutex
	messages []model.ChatMessage
	now      func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{
		messages: make([]model.ChatMessage, 0, 20),
		now:      now,
	}
}

// Append adds a message and returns it.
func (t *Transcript) Append(role model.Role, content string) model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := model.ChatMessage{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		TS:      t.now().UnixMilli(),
	}
	t.messages = append(t.messages, msg)
	return msg
}

// Extend appends fragment to the message with id, which must be last.
func (t *Transcript) Extend(id, fragment string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.messages)
	if n == 0 || t.messages[n-1].ID != id {
		return false
	}
	t.messages[n-1].Content += fragment
	return true
}

// Replace overwrites the content of the trailing message with id.
func (t *Transcript) Replace(id, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.messages)
	if n == 0 || t.messages[n-1].ID != id {
		return false
	}
	t.messages[n-1].Content = content
	return true
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]model.ChatMessage, len(t.messages))
	copy(result, t.messages)
	return result
}

// Turns converts the transcript into the request wire format.
func (t *Transcript) Turns() []model.ChatTurn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turns := make([]model.ChatTurn, len(t.messages))
	for i, m := range t.messages {
		turns[i] = model.ChatTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}

// Reset clears all messages.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = t.messages[:0]
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.messages)
}
