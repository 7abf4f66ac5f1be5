package session

import (
	"context"
	"fmt"
	"time"

	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/reconcile"
	"drinkmate/supportchat/internal/store"

	"go.uber.org/zap"
)

// LoadSession fetches a chat and makes it current. The loading flag is
// cleared whatever the outcome.
func (s *Service) LoadSession(ctx context.Context, chatID string) error {
	s.store.Dispatch(store.SetLoading{Loading: true})
	defer s.store.Dispatch(store.SetLoading{Loading: false})

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	chat, err := s.api.GetChat(ctx, chatID)
	if err != nil {
		s.fail("Failed to load chat session", err)
		return fmt.Errorf("loading chat %s: %w", chatID, err)
	}

	s.makeCurrent(chat.ToSession())
	return nil
}

// LoadCustomerSessions lists the customer's chats and resumes the most
// recent active one. Nothing is fetched while logged out or while the
// server's health probe fails.
func (s *Service) LoadCustomerSessions(ctx context.Context) error {
	if s.tokens.GetAuthToken() == "" {
		return ErrNotAuthenticated
	}

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	if err := s.api.Health(ctx); err != nil {
		s.log.Info("chat server unavailable, skipping session lookup", zap.Error(err))
		return fmt.Errorf("chat server unavailable: %w", err)
	}

	s.store.Dispatch(store.SetLoading{Loading: true})
	defer s.store.Dispatch(store.SetLoading{Loading: false})

	chats, err := s.api.CustomerChats(ctx)
	if err != nil {
		s.fail("Failed to load chat sessions", err)
		return fmt.Errorf("listing customer chats: %w", err)
	}

	sessions := make([]models.ChatSession, len(chats))
	latest := -1
	for i, chat := range chats {
		sessions[i] = chat.ToSession()
		if !sessions[i].IsActive() {
			continue
		}
		if latest < 0 || lastActivity(sessions[i]).After(lastActivity(sessions[latest])) {
			latest = i
		}
	}
	s.store.Dispatch(store.SetSessionList{Sessions: sessions})

	if latest >= 0 {
		s.makeCurrent(sessions[latest])
	}
	return nil
}

// CreateSession opens a new chat for the authenticated customer. On failure
// the store keeps its previous session.
func (s *Service) CreateSession(ctx context.Context) (models.ChatSession, error) {
	id, err := auth.IdentityOf(s.tokens)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	s.store.Dispatch(store.SetLoading{Loading: true})
	defer s.store.Dispatch(store.SetLoading{Loading: false})

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	chat, err := s.api.CreateChat(ctx, models.ServerCustomer{UserID: id.UserID, Name: id.Name, Email: id.Email})
	if err != nil {
		s.fail("Failed to create chat session", err)
		return models.ChatSession{}, fmt.Errorf("creating chat: %w", err)
	}

	sess := chat.ToSession()
	s.makeCurrent(sess)
	s.log.Info("chat session created", zap.String("chat_id", sess.ID))
	return sess, nil
}

func (s *Service) makeCurrent(sess models.ChatSession) {
	s.clearTyping()

	s.mu.Lock()
	s.store.Dispatch(
		store.SetCurrentSession{Session: &sess},
		store.SetUnreadCount{Count: len(reconcile.ReadCandidates(sess.Messages))},
	)
	s.mu.Unlock()

	s.joinCurrent()
}

func lastActivity(sess models.ChatSession) time.Time {
	t := sess.LastMessageAt
	if sess.UpdatedAt.After(t) {
		t = sess.UpdatedAt
	}
	return t
}
