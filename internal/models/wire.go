package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ParticipantRef is a reference to a conversation participant as the server
// sends it: either a bare role/id string or a populated object.
type ParticipantRef struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// UnmarshalJSON accepts null, a string or an object.
func (p *ParticipantRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ParticipantRef{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		// A bare string is either a role ("agent") or an opaque id.
		if _, ok := agentRoles[strings.ToLower(s)]; ok || strings.EqualFold(s, string(SenderCustomer)) {
			*p = ParticipantRef{Role: s}
		} else {
			*p = ParticipantRef{ID: s}
		}
		return nil
	}

	type alias ParticipantRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ParticipantRef(a)
	return nil
}

// IsZero reports whether the reference carries no information.
func (p ParticipantRef) IsZero() bool {
	return p.ID == "" && p.Name == "" && p.Role == ""
}

// ServerMessage is the message shape returned by the REST API and pushed over
// the socket.
type ServerMessage struct {
	ID string `json:"_id"`
	// ClientID echoes the temporary id of an optimistic send, when the server supports it.
	ClientID    string         `json:"clientId,omitempty"`
	Content     string         `json:"content"`
	Sender      ParticipantRef `json:"sender"`
	SenderType  string         `json:"senderType,omitempty"`
	MessageType string         `json:"messageType,omitempty"`
	IsInternal  bool           `json:"isInternal,omitempty"`
	IsRead      bool           `json:"isRead,omitempty"`
	Status      string         `json:"status,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ToMessage normalizes the server shape into the canonical Message.
func (sm ServerMessage) ToMessage() Message {
	role := sm.SenderType
	if role == "" {
		role = sm.Sender.Role
	}

	status := StatusDelivered
	switch {
	case sm.IsRead:
		status = StatusRead
	case MessageStatus(sm.Status).IsValid():
		status = MessageStatus(sm.Status)
	}

	msgType := strings.ToLower(sm.MessageType)
	return Message{
		ID:          sm.ID,
		Content:     sm.Content,
		Sender:      NormalizeSender(role),
		Timestamp:   sm.CreatedAt,
		Status:      status,
		IsNote:      sm.IsInternal || msgType == "note" || msgType == "internal",
		Attachments: append([]Attachment{}, sm.Attachments...),
	}
}

// ServerCustomer is the customer block of a server chat document.
type ServerCustomer struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// ServerChat is a chat document as returned by the REST API.
type ServerChat struct {
	ID            string          `json:"_id"`
	Status        string          `json:"status"`
	Customer      ServerCustomer  `json:"customer"`
	AssignedTo    ParticipantRef  `json:"assignedTo"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	LastMessageAt time.Time       `json:"lastMessageAt"`
	Messages      []ServerMessage `json:"messages"`
}

// ToSession converts a server chat document into a ChatSession.
func (sc ServerChat) ToSession() ChatSession {
	status := SessionStatus(strings.ToLower(sc.Status))
	if status != SessionClosed {
		status = SessionActive
	}

	agent := sc.AssignedTo.ID
	if agent == "" {
		agent = sc.AssignedTo.Name
	}

	msgs := make([]Message, 0, len(sc.Messages))
	for _, m := range sc.Messages {
		msgs = append(msgs, m.ToMessage())
	}

	return ChatSession{
		ID:     sc.ID,
		Status: status,
		Customer: Customer{
			ID:    sc.Customer.UserID,
			Name:  sc.Customer.Name,
			Email: sc.Customer.Email,
		},
		AssignedAgent: agent,
		CreatedAt:     sc.CreatedAt,
		UpdatedAt:     sc.UpdatedAt,
		LastMessageAt: sc.LastMessageAt,
		Messages:      msgs,
	}
}
