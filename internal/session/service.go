// Package session performs the I/O around the chat store: REST calls,
// realtime events and timers. Every outcome reaches the UI as store actions.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/storage"
	"drinkmate/supportchat/internal/store"

	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned by operations that need a current chat.
	ErrNoSession = errors.New("session: no active chat session")
	// ErrNotAuthenticated is returned when the operation needs a logged-in customer.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// Realtime is the part of the connection manager the service uses.
type Realtime interface {
	Connect()
	Disconnect()
	IsConnected() bool
	Emit(event string, payload any) error
	On(event string, h chathub.Handler)
	Off(event string)
	SubscribeState(fn func(models.ConnectionState)) func()
}

// API is the REST surface the service uses.
type API interface {
	Health(ctx context.Context) error
	CustomerChats(ctx context.Context) ([]models.ServerChat, error)
	GetChat(ctx context.Context, chatID string) (models.ServerChat, error)
	CreateChat(ctx context.Context, customer models.ServerCustomer) (models.ServerChat, error)
	SendMessage(ctx context.Context, chatID, content, messageType string) (models.ServerMessage, error)
	MarkRead(ctx context.Context, chatID string) error
	UpdateMessageStatus(ctx context.Context, chatID, messageID string, status models.MessageStatus) error
	RateChat(ctx context.Context, chatID string, rating int, comment string) error
}

// Options wires a Service. Durations left at zero use the config defaults;
// Flags defaults to an in-memory store.
type Options struct {
	Store    *store.Store
	Realtime Realtime
	API      API
	Tokens   auth.TokenSource
	Flags    storage.Storage
	Logger   *zap.Logger

	DedupWindow    time.Duration
	DeliveredDelay time.Duration
	AutoReadDelay  time.Duration
	TypingTimeout  time.Duration
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Service orchestrates one customer's chat.
type Service struct {
	store    *store.Store
	rt       Realtime
	api      API
	tokens   auth.TokenSource
	flags    storage.Storage
	log      *zap.Logger
	now      func() time.Time
	dedup    time.Duration
	delivery time.Duration
	autoRead time.Duration
	typing   time.Duration
	timeout  time.Duration

	// mu serializes read-reconcile-dispatch sequences on the message list.
	mu sync.Mutex

	timerMu      sync.Mutex
	stopped      bool
	timers       map[*time.Timer]struct{}
	typingTimers map[string]*time.Timer

	unsubscribe func()
}

// New creates the service and subscribes it to realtime events.
func New(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = store.New(opts.Logger)
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.StaticToken("")
	}
	if opts.Flags == nil {
		opts.Flags = storage.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:        opts.Store,
		rt:           opts.Realtime,
		api:          opts.API,
		tokens:       opts.Tokens,
		flags:        opts.Flags,
		log:          logger.OrNop(opts.Logger).Named("session"),
		now:          opts.Now,
		dedup:        orDefault(opts.DedupWindow, config.DedupWindow),
		delivery:     orDefault(opts.DeliveredDelay, config.DeliveredDelay),
		autoRead:     orDefault(opts.AutoReadDelay, config.AutoReadDelay),
		typing:       orDefault(opts.TypingTimeout, config.TypingTimeout),
		timeout:      orDefault(opts.RequestTimeout, config.HTTPTimeout),
		timers:       make(map[*time.Timer]struct{}),
		typingTimers: make(map[string]*time.Timer),
	}
	s.attach()
	return s
}

// Store returns the store the service dispatches to.
func (s *Service) Store() *store.Store { return s.store }

// Shutdown detaches from the realtime connection and cancels pending timers.
// The connection itself is left alone.
func (s *Service) Shutdown() {
	s.rt.Off(models.EventNewMessage)
	s.rt.Off(models.EventTypingStart)
	s.rt.Off(models.EventTypingStop)
	s.rt.Off(models.EventConnect)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.timerMu.Lock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	for _, t := range s.typingTimers {
		t.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
	s.typingTimers = map[string]*time.Timer{}
	s.timerMu.Unlock()
}

func (s *Service) attach() {
	s.rt.On(models.EventNewMessage, s.handleNewMessage)
	s.rt.On(models.EventTypingStart, s.handleTyping(true))
	s.rt.On(models.EventTypingStop, s.handleTyping(false))
	s.rt.On(models.EventConnect, s.handleConnect)
	s.unsubscribe = s.rt.SubscribeState(func(cs models.ConnectionState) {
		s.store.Dispatch(store.SetConnectionState{State: cs})
	})
	s.store.Dispatch(store.SetConnectionState{State: models.ConnectionState{IsConnected: s.rt.IsConnected()}})
}

// after runs fn once d has elapsed unless the service is shut down first.
func (s *Service) after(d time.Duration, fn func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.timerMu.Lock()
		delete(s.timers, t)
		stopped := s.stopped
		s.timerMu.Unlock()
		if !stopped {
			fn()
		}
	})
	s.timers[t] = struct{}{}
}

func (s *Service) currentSession() (models.ChatSession, bool) {
	st := s.store.State()
	if st.CurrentSession == nil {
		return models.ChatSession{}, false
	}
	return *st.CurrentSession, true
}

func (s *Service) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// joinCurrent subscribes the connection to the current chat's room.
func (s *Service) joinCurrent() {
	sess, ok := s.currentSession()
	if !ok || !sess.IsActive() || !s.rt.IsConnected() {
		return
	}
	if err := s.rt.Emit(models.EventJoinChat, models.ChatRef{ChatID: sess.ID}); err != nil {
		s.log.Debug("join_chat not sent", zap.String("chat_id", sess.ID), zap.Error(err))
	}
}

// fail surfaces err as the store error, prefixed with what was attempted.
func (s *Service) fail(message string, err error) {
	s.log.Warn(message, zap.Error(err))
	s.store.Dispatch(store.SetError{Message: message + ": " + err.Error()})
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
