package core

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Message is one entry of the append-only conversation log.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewUserMessage creates a user-authored message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant-authored message stamped with the
// current time.
func NewAssistantMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}
