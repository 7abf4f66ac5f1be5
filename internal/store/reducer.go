package store

import (
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/reconcile"
)

// State is the chat UI state. Values handed out by the Store are snapshots;
// callers may read but must not mutate shared slices or maps.
type State struct {
	Loading        bool
	Error          string
	IsOpen         bool
	IsMinimized    bool
	CurrentSession *models.ChatSession
	Sessions       []models.ChatSession
	Messages       []models.Message
	UnreadCount    int
	TypingUsers    map[string]struct{}
	Connection     models.ConnectionState
}

// InitialState returns the empty state.
func InitialState() State {
	return State{TypingUsers: map[string]struct{}{}}
}

// IsTyping reports whether userID is in the typing set.
func (s State) IsTyping(userID string) bool {
	_, ok := s.TypingUsers[userID]
	return ok
}

// FindMessage returns the message with the given id.
func (s State) FindMessage(id string) (models.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// Reduce is a pure function: it never mutates s and performs no I/O.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetLoading:
		s.Loading = a.Loading

	case SetError:
		s.Error = a.Message
		s.Loading = false

	case SetOpen:
		s.IsOpen = a.Open
		if a.Open {
			s.IsMinimized = false
		}

	case SetMinimized:
		s.IsMinimized = a.Minimized

	case SetCurrentSession:
		if a.Session == nil {
			s.CurrentSession = nil
			s.Messages = []models.Message{}
			break
		}
		session := a.Session.Clone()
		s.Messages = models.CloneMessages(session.Messages)
		if s.Messages == nil {
			s.Messages = []models.Message{}
		}
		session.Messages = nil
		s.CurrentSession = &session
		s.Error = ""

	case SetSessionList:
		sessions := make([]models.ChatSession, len(a.Sessions))
		for i, cs := range a.Sessions {
			sessions[i] = cs.Clone()
		}
		s.Sessions = sessions

	case AddMessage:
		msgs := make([]models.Message, len(s.Messages), len(s.Messages)+1)
		copy(msgs, s.Messages)
		s.Messages = append(msgs, a.Message.Clone())

	case UpdateMessage:
		idx := -1
		for i, m := range s.Messages {
			if m.ID == a.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s
		}
		msgs := make([]models.Message, len(s.Messages))
		copy(msgs, s.Messages)
		msgs[idx] = applyPatch(msgs[idx], a.Patch)
		s.Messages = msgs

	case RemoveMessage:
		msgs := make([]models.Message, 0, len(s.Messages))
		for _, m := range s.Messages {
			if m.ID != a.ID {
				msgs = append(msgs, m)
			}
		}
		s.Messages = msgs

	case ReplaceMessageList:
		s.Messages = models.CloneMessages(a.Messages)
		if s.Messages == nil {
			s.Messages = []models.Message{}
		}

	case SetUnreadCount:
		if a.Count < 0 {
			a.Count = 0
		}
		s.UnreadCount = a.Count

	case IncrementUnread:
		s.UnreadCount++

	case AddTypingUser:
		if a.UserID == "" || s.IsTyping(a.UserID) {
			return s
		}
		typing := copySet(s.TypingUsers)
		typing[a.UserID] = struct{}{}
		s.TypingUsers = typing

	case RemoveTypingUser:
		if !s.IsTyping(a.UserID) {
			return s
		}
		typing := copySet(s.TypingUsers)
		delete(typing, a.UserID)
		s.TypingUsers = typing

	case SetConnectionState:
		s.Connection = a.State

	case ClearSession:
		s.CurrentSession = nil
		s.Messages = []models.Message{}
		s.UnreadCount = 0
		s.TypingUsers = map[string]struct{}{}
		s.Error = ""
	}

	return s
}

func applyPatch(m models.Message, p MessagePatch) models.Message {
	m = m.Clone()
	if p.ID != nil && *p.ID != "" {
		m.ID = *p.ID
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Timestamp != nil && !p.Timestamp.IsZero() {
		m.Timestamp = *p.Timestamp
	}
	if p.Status != nil {
		m.Status = reconcile.Promote(m.Status, *p.Status)
	}
	if p.Attachments != nil {
		m.Attachments = append([]models.Attachment{}, p.Attachments...)
	}
	return m
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in)+1)
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
