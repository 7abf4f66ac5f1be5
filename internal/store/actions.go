package store

import (
	"time"

	"drinkmate/supportchat/internal/models"
)

// Action is a state change request handled by Reduce.
type Action interface {
	actionName() string
}

type SetLoading struct{ Loading bool }

type SetError struct{ Message string }

type SetOpen struct{ Open bool }

type SetMinimized struct{ Minimized bool }

// SetCurrentSession replaces the session and resets the message list from
// the session snapshot. A nil Session clears the current session only.
type SetCurrentSession struct{ Session *models.ChatSession }

// SetSessionList feeds the agent/admin overview.
type SetSessionList struct{ Sessions []models.ChatSession }

// AddMessage always appends. Deduplication happens before dispatch.
type AddMessage struct{ Message models.Message }

// UpdateMessage patches the message with the given id. It is a no-op when no
// such message exists.
type UpdateMessage struct {
	ID    string
	Patch MessagePatch
}

// RemoveMessage drops the message with the given id, if present.
type RemoveMessage struct{ ID string }

type ReplaceMessageList struct{ Messages []models.Message }

type SetUnreadCount struct{ Count int }

type IncrementUnread struct{}

type AddTypingUser struct{ UserID string }

type RemoveTypingUser struct{ UserID string }

type SetConnectionState struct{ State models.ConnectionState }

// ClearSession resets session, messages, unread count and typing users together.
type ClearSession struct{}

// MessagePatch is a partial update. Nil fields are left untouched. Status is
// applied through the forward-only status machine.
type MessagePatch struct {
	ID          *string
	Content     *string
	Timestamp   *time.Time
	Status      *models.MessageStatus
	Attachments []models.Attachment
}

// PatchFrom builds a patch that turns an existing entry into m.
func PatchFrom(m models.Message) MessagePatch {
	id, content, ts, status := m.ID, m.Content, m.Timestamp, m.Status
	return MessagePatch{ID: &id, Content: &content, Timestamp: &ts, Status: &status, Attachments: m.Attachments}
}

// StatusPatch is a patch that only changes the status.
func StatusPatch(s models.MessageStatus) MessagePatch {
	return MessagePatch{Status: &s}
}

func (SetLoading) actionName() string         { return "set-loading" }
func (SetError) actionName() string           { return "set-error" }
func (SetOpen) actionName() string            { return "set-open" }
func (SetMinimized) actionName() string       { return "set-minimized" }
func (SetCurrentSession) actionName() string  { return "set-current-session" }
func (SetSessionList) actionName() string     { return "set-session-list" }
func (AddMessage) actionName() string         { return "add-message" }
func (UpdateMessage) actionName() string      { return "update-message" }
func (RemoveMessage) actionName() string      { return "remove-message" }
func (ReplaceMessageList) actionName() string { return "replace-message-list" }
func (SetUnreadCount) actionName() string     { return "set-unread-count" }
func (IncrementUnread) actionName() string    { return "increment-unread" }
func (AddTypingUser) actionName() string      { return "add-typing-user" }
func (RemoveTypingUser) actionName() string   { return "remove-typing-user" }
func (SetConnectionState) actionName() string { return "set-connection-state" }
func (ClearSession) actionName() string       { return "clear-session" }

// Name returns the action's wire-style name, used in logs.
func Name(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}
