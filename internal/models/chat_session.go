package models

import "time"

// SessionStatus is the lifecycle state of a support conversation.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Customer is the identity a conversation is bound to. It never changes
// once the session has been created.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ChatSession represents one support conversation between a customer and
// (optionally) an assigned agent.
type ChatSession struct {
	// ID is assigned by the server.
	ID     string        `json:"id"`
	Status SessionStatus `json:"status"`
	// Customer who opened the conversation.
	Customer Customer `json:"customer"`
	// AssignedAgent is empty while the conversation is unassigned.
	AssignedAgent string    `json:"assignedAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	// Messages are kept in chronological (insertion) order.
	Messages []Message `json:"messages"`
}

// IsActive reports whether the session still accepts messages.
func (s ChatSession) IsActive() bool {
	return s.Status == SessionActive
}

// Clone returns a deep copy of the session.
func (s ChatSession) Clone() ChatSession {
	s.Messages = CloneMessages(s.Messages)
	return s
}
