package session

import (
	"encoding/json"
	"time"

	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/reconcile"
	"drinkmate/supportchat/internal/store"

	"go.uber.org/zap"
)

// handleNewMessage reconciles a pushed message into the current chat.
func (s *Service) handleNewMessage(data json.RawMessage) {
	var p models.NewMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn("undecodable new_message", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	if st.CurrentSession == nil || st.CurrentSession.ID != p.ChatID {
		s.log.Debug("new_message for another chat", zap.String("chat_id", p.ChatID))
		return
	}

	incoming := p.Message.ToMessage()
	if incoming.Timestamp.IsZero() {
		incoming.Timestamp = s.now()
	}

	d := reconcile.Reconcile(st.Messages, incoming, p.Message.ClientID, s.dedup)
	switch {
	case d.Kind == reconcile.NoMatch:
		s.store.Dispatch(store.AddMessage{Message: incoming})
	case d.Changed:
		s.store.Dispatch(store.UpdateMessage{ID: d.ExistingID, Patch: store.PatchFrom(d.Merged)})
		return
	default:
		s.log.Debug("duplicate message dropped", zap.String("id", incoming.ID), zap.Stringer("match", d.Kind))
		return
	}

	if incoming.Sender == models.SenderAgent && !incoming.IsNote && incoming.Status != models.StatusRead {
		s.store.Dispatch(store.IncrementUnread{})
		id := incoming.ID
		s.after(s.autoRead, func() {
			s.store.Dispatch(store.UpdateMessage{ID: id, Patch: store.StatusPatch(models.StatusRead)})
		})
	}
}

// handleTyping tracks who is typing in the current chat. An entry that is
// not refreshed expires after the typing timeout.
func (s *Service) handleTyping(start bool) func(json.RawMessage) {
	return func(data json.RawMessage) {
		var p models.TypingPayload
		if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
			return
		}
		sess, ok := s.currentSession()
		if !ok || sess.ID != p.ChatID {
			return
		}

		if !start {
			s.stopTypingTimer(p.UserID)
			s.store.Dispatch(store.RemoveTypingUser{UserID: p.UserID})
			return
		}

		s.store.Dispatch(store.AddTypingUser{UserID: p.UserID})
		s.resetTypingTimer(p.UserID)
	}
}

// handleConnect rejoins the current chat after every (re)connection.
func (s *Service) handleConnect(json.RawMessage) {
	s.joinCurrent()
}

func (s *Service) resetTypingTimer(userID string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.typingTimers[userID]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(s.typing, func() {
		s.timerMu.Lock()
		current := s.typingTimers[userID] == t
		if current {
			delete(s.typingTimers, userID)
		}
		s.timerMu.Unlock()
		if current {
			s.store.Dispatch(store.RemoveTypingUser{UserID: userID})
		}
	})
	s.typingTimers[userID] = t
}

func (s *Service) stopTypingTimer(userID string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if t, ok := s.typingTimers[userID]; ok {
		t.Stop()
		delete(s.typingTimers, userID)
	}
}

// clearTyping empties the typing set and cancels its expiry timers.
func (s *Service) clearTyping() {
	s.timerMu.Lock()
	for userID, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, userID)
	}
	s.timerMu.Unlock()

	typing := s.store.State().TypingUsers
	actions := make([]store.Action, 0, len(typing))
	for userID := range typing {
		actions = append(actions, store.RemoveTypingUser{UserID: userID})
	}
	if len(actions) > 0 {
		s.store.Dispatch(actions...)
	}
}
