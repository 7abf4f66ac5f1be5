package models

import (
	"strings"
	"time"
)

// MessageStatus is the delivery state of a single chat message.
// Valid progressions are enforced by the reconcile package.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// IsValid reports whether s is one of the known statuses.
func (s MessageStatus) IsValid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// SenderType identifies which side of the conversation authored a message.
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
)

var agentRoles = map[string]struct{}{
	"agent":    {},
	"admin":    {},
	"support":  {},
	"staff":    {},
	"operator": {},
}

// NormalizeSender maps a server role value onto the two canonical senders.
// Anything that is not agent-like is treated as the customer.
func NormalizeSender(role string) SenderType {
	if _, ok := agentRoles[strings.ToLower(strings.TrimSpace(role))]; ok {
		return SenderAgent
	}
	return SenderCustomer
}

// Attachment describes a file linked to a message.
type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Message is one chat message as held by the client store.
//
// For optimistic sends ID holds a temporary client id (see reconcile.NewTemporaryID)
// until the server-confirmed id is rebound onto the same entry.
type Message struct {
	ID          string        `json:"id"`
	Content     string        `json:"content"`
	Sender      SenderType    `json:"sender"`
	Timestamp   time.Time     `json:"timestamp"`
	Status      MessageStatus `json:"status"`
	IsNote      bool          `json:"isNote"`
	Attachments []Attachment  `json:"attachments"`
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Attachments != nil {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return m
}

// TrimmedContent is the content used for validation and duplicate detection.
func (m Message) TrimmedContent() string {
	return strings.TrimSpace(m.Content)
}

// CloneMessages copies a message list so the result can be mutated freely.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
