package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/reconcile"
	"drinkmate/supportchat/internal/store"

	"go.uber.org/zap"
)

const textMessage = "text"

// SendMessage sends content to the current chat.
//
// While connected the message goes over the socket and appears when the
// server echoes it back. Otherwise it is inserted optimistically as
// "sending" and posted over HTTP; the entry is confirmed in place on success
// or marked failed.
func (s *Service) SendMessage(ctx context.Context, content string) models.Result {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Fail("Message cannot be empty")
	}
	sess, ok := s.currentSession()
	if !ok {
		return models.Fail("No active chat session")
	}

	if s.rt.IsConnected() {
		err := s.rt.Emit(models.EventSendMessage, models.SendMessagePayload{ChatID: sess.ID, Content: content, Type: textMessage})
		if err == nil {
			return models.OK()
		}
		if !errors.Is(err, chathub.ErrNotConnected) {
			s.log.Warn("socket send failed, falling back to HTTP", zap.Error(err))
		}
	}
	return s.sendOverHTTP(ctx, sess.ID, content)
}

func (s *Service) sendOverHTTP(ctx context.Context, chatID, content string) models.Result {
	tempID := reconcile.NewTemporaryID()
	s.store.Dispatch(store.AddMessage{Message: models.Message{
		ID:          tempID,
		Content:     content,
		Sender:      models.SenderCustomer,
		Timestamp:   s.now(),
		Status:      models.StatusSending,
		Attachments: []models.Attachment{},
	}})

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	sm, err := s.api.SendMessage(ctx, chatID, content, textMessage)
	if err != nil {
		s.log.Warn("sending message failed", zap.String("chat_id", chatID), zap.Error(err))
		s.store.Dispatch(
			store.UpdateMessage{ID: tempID, Patch: store.StatusPatch(models.StatusFailed)},
			store.SetError{Message: "Failed to send message"},
		)
		return models.Fail("Failed to send message")
	}

	confirmedID := s.confirm(tempID, sm.ToMessage())
	s.after(s.delivery, func() {
		s.store.Dispatch(store.UpdateMessage{ID: confirmedID, Patch: store.StatusPatch(models.StatusDelivered)})
	})
	return models.OK()
}

// confirm rebinds the optimistic entry to the server copy and returns the
// id the message now lives under.
func (s *Service) confirm(tempID string, confirmed models.Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if confirmed.ID == "" {
		confirmed.ID = tempID
	}
	st := s.store.State()
	if _, ok := st.FindMessage(tempID); !ok {
		// A push already rebound the entry.
		return confirmed.ID
	}
	if _, ok := st.FindMessage(confirmed.ID); ok && confirmed.ID != tempID {
		s.store.Dispatch(store.RemoveMessage{ID: tempID})
		return confirmed.ID
	}

	patch := store.StatusPatch(models.StatusSent)
	patch.ID = &confirmed.ID
	if !confirmed.Timestamp.IsZero() {
		patch.Timestamp = &confirmed.Timestamp
	}
	s.store.Dispatch(store.UpdateMessage{ID: tempID, Patch: patch})
	return confirmed.ID
}

// RetryMessage resends a failed message as a fresh message.
func (s *Service) RetryMessage(ctx context.Context, messageID string) models.Result {
	msg, ok := s.store.State().FindMessage(messageID)
	if !ok {
		return models.Fail("Message not found")
	}
	if msg.Status != models.StatusFailed {
		return models.Fail("Only failed messages can be retried")
	}
	if _, ok := s.currentSession(); !ok {
		return models.Fail("No active chat session")
	}

	s.store.Dispatch(store.RemoveMessage{ID: messageID})
	return s.SendMessage(ctx, msg.Content)
}

// MarkAsRead tells the server the customer has seen the chat. The local
// unread count is reset and agent messages are promoted to read even if the
// request fails.
func (s *Service) MarkAsRead(ctx context.Context) {
	sess, ok := s.currentSession()
	if !ok {
		return
	}

	rctx, cancel := s.requestContext(ctx)
	if err := s.api.MarkRead(rctx, sess.ID); err != nil {
		s.log.Debug("mark as read failed", zap.String("chat_id", sess.ID), zap.Error(err))
	}
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := reconcile.ReadCandidates(s.store.State().Messages)
	actions := make([]store.Action, 0, len(ids)+1)
	actions = append(actions, store.SetUnreadCount{Count: 0})
	for _, id := range ids {
		actions = append(actions, store.UpdateMessage{ID: id, Patch: store.StatusPatch(models.StatusRead)})
	}
	s.store.Dispatch(actions...)
}

// UpdateMessageStatus records a status change on the server, then locally.
// The local status never moves backwards.
func (s *Service) UpdateMessageStatus(ctx context.Context, messageID string, status models.MessageStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid message status %q", status)
	}
	sess, ok := s.currentSession()
	if !ok {
		return ErrNoSession
	}

	ctx, cancel := s.requestContext(ctx)
	defer cancel()
	if err := s.api.UpdateMessageStatus(ctx, sess.ID, messageID, status); err != nil {
		return fmt.Errorf("updating status of %s: %w", messageID, err)
	}

	s.store.Dispatch(store.UpdateMessage{ID: messageID, Patch: store.StatusPatch(status)})
	return nil
}

// RateSession submits a 1-5 rating with an optional comment. Input is
// validated before any request is made.
func (s *Service) RateSession(ctx context.Context, rating int, comment string) models.Result {
	if rating < config.MinRating || rating > config.MaxRating {
		return models.Fail(fmt.Sprintf("Rating must be between %d and %d", config.MinRating, config.MaxRating))
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > config.MaxCommentLength {
		return models.Fail(fmt.Sprintf("Comment must be %d characters or less", config.MaxCommentLength))
	}
	sess, ok := s.currentSession()
	if !ok {
		return models.Fail("No active chat session")
	}

	ctx, cancel := s.requestContext(ctx)
	defer cancel()
	if err := s.api.RateChat(ctx, sess.ID, rating, comment); err != nil {
		s.log.Warn("rating failed", zap.String("chat_id", sess.ID), zap.Error(err))
		return models.Fail("Failed to submit rating")
	}
	return models.OK()
}

// StartTyping announces that the customer is typing. Skipped while offline.
func (s *Service) StartTyping() { s.emitTyping(models.EventTypingStart) }

// StopTyping announces that the customer stopped typing.
func (s *Service) StopTyping() { s.emitTyping(models.EventTypingStop) }

func (s *Service) emitTyping(event string) {
	sess, ok := s.currentSession()
	if !ok || !s.rt.IsConnected() {
		return
	}
	if err := s.rt.Emit(event, models.ChatRef{ChatID: sess.ID}); err != nil {
		s.log.Debug("typing event not sent", zap.String("event", event), zap.Error(err))
	}
}
