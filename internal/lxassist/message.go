package lxassist

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Sender identifies who produced a timeline entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderError     Sender = "error"
)

// Message represents a single entry in the chat timeline
type Message struct {
	ID               string    `json:"id"`                          // ULID, sortable by creation time
	Sender           Sender    `json:"sender"`                      // "user", "assistant" or "error"
	Content          string    `json:"content"`                     // Question, answer, or human-readable cause
	Timestamp        time.Time `json:"timestamp"`                   // Creation time, or backend time for loaded history
	ConversationID   string    `json:"conversation_id,omitempty"`   // Backend exchange id once a round trip succeeds
	OriginalQuestion string    `json:"original_question,omitempty"` // Error entries only
	ErrorKind        string    `json:"error_kind,omitempty"`        // Error entries only
}

// NewMessageID returns a new unique, monotonically increasing message id.
func NewMessageID() string {
	return ulid.Make().String()
}

// NewMessage creates a timeline entry with a fresh id.
func NewMessage(sender Sender, content string, at time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
}

// IsError reports whether the entry is a retryable error entry.
func (m Message) IsError() bool {
	return m.Sender == SenderError
}
