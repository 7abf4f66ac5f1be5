package session

import (
	"context"

	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/store"

	"go.uber.org/zap"
)

// Open shows the chat widget and remembers that it is open.
func (s *Service) Open(ctx context.Context) {
	s.store.Dispatch(store.SetOpen{Open: true})
	s.persistOpen(ctx, true)
}

// Close hides the widget and leaves the current chat's room.
func (s *Service) Close(ctx context.Context) {
	if sess, ok := s.currentSession(); ok && sess.IsActive() && s.rt.IsConnected() {
		if err := s.rt.Emit(models.EventLeaveChat, models.ChatRef{ChatID: sess.ID}); err != nil {
			s.log.Debug("leave_chat not sent", zap.String("chat_id", sess.ID), zap.Error(err))
		}
	}
	s.store.Dispatch(store.SetOpen{Open: false})
	s.persistOpen(ctx, false)
}

// Minimize collapses or expands the open widget.
func (s *Service) Minimize(minimized bool) {
	s.store.Dispatch(store.SetMinimized{Minimized: minimized})
}

// RestoreVisibility reopens the widget if it was open when the client last
// ran. It reports the restored visibility.
func (s *Service) RestoreVisibility(ctx context.Context) bool {
	open, err := s.flags.GetFlag(ctx, config.WidgetOpenKey)
	if err != nil {
		s.log.Warn("reading widget flag", zap.Error(err))
		return false
	}
	if open {
		s.store.Dispatch(store.SetOpen{Open: true})
	}
	return open
}

// Logout forgets the chat state and closes the connection.
func (s *Service) Logout(ctx context.Context) {
	s.clearTyping()
	s.store.Dispatch(store.ClearSession{}, store.SetOpen{Open: false})
	if err := s.flags.Delete(ctx, config.WidgetOpenKey); err != nil {
		s.log.Warn("dropping widget flag", zap.Error(err))
	}
	s.rt.Disconnect()
}

func (s *Service) persistOpen(ctx context.Context, open bool) {
	if err := s.flags.SetFlag(ctx, config.WidgetOpenKey, open); err != nil {
		s.log.Warn("persisting widget flag", zap.Bool("open", open), zap.Error(err))
	}
}
