package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/models"
	"drinkmate/supportchat/internal/session"
	"drinkmate/supportchat/internal/storage"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAPI is a mock of session.API.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAPI) CustomerChats(ctx context.Context) ([]models.ServerChat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ServerChat), args.Error(1)
}

func (m *MockAPI) GetChat(ctx context.Context, chatID string) (models.ServerChat, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(models.ServerChat), args.Error(1)
}

func (m *MockAPI) CreateChat(ctx context.Context, customer models.ServerCustomer) (models.ServerChat, error) {
	args := m.Called(ctx, customer)
	return args.Get(0).(models.ServerChat), args.Error(1)
}

func (m *MockAPI) SendMessage(ctx context.Context, chatID, content, messageType string) (models.ServerMessage, error) {
	args := m.Called(ctx, chatID, content, messageType)
	return args.Get(0).(models.ServerMessage), args.Error(1)
}

func (m *MockAPI) MarkRead(ctx context.Context, chatID string) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *MockAPI) UpdateMessageStatus(ctx context.Context, chatID, messageID string, status models.MessageStatus) error {
	return m.Called(ctx, chatID, messageID, status).Error(0)
}

func (m *MockAPI) RateChat(ctx context.Context, chatID string, rating int, comment string) error {
	return m.Called(ctx, chatID, rating, comment).Error(0)
}

// fakeRealtime records emitted events and lets tests push inbound ones.
type fakeRealtime struct {
	mu          sync.Mutex
	connected   bool
	handlers    map[string]chathub.Handler
	subs        map[int]func(models.ConnectionState)
	nextSub     int
	emitted     []models.SocketEnvelope
	disconnects int
}

func newFakeRealtime(connected bool) *fakeRealtime {
	return &fakeRealtime{
		connected: connected,
		handlers:  make(map[string]chathub.Handler),
		subs:      make(map[int]func(models.ConnectionState)),
	}
}

func (f *fakeRealtime) Connect() { f.setConnected(true) }

func (f *fakeRealtime) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	f.setConnected(false)
}

func (f *fakeRealtime) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeRealtime) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return chathub.ErrNotConnected
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.emitted = append(f.emitted, models.SocketEnvelope{Event: event, Data: data})
	return nil
}

func (f *fakeRealtime) On(event string, h chathub.Handler) {
	f.mu.Lock()
	f.handlers[event] = h
	f.mu.Unlock()
}

func (f *fakeRealtime) Off(event string) {
	f.mu.Lock()
	delete(f.handlers, event)
	f.mu.Unlock()
}

func (f *fakeRealtime) SubscribeState(fn func(models.ConnectionState)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeRealtime) setConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	subs := make([]func(models.ConnectionState), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(models.ConnectionState{IsConnected: connected})
	}
}

// push delivers an inbound event the way the connection manager would.
func (f *fakeRealtime) push(event string, payload any) {
	data, _ := json.Marshal(payload)
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	if h != nil {
		h(data)
	}
}

func (f *fakeRealtime) emittedFor(event string) []models.SocketEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SocketEnvelope
	for _, e := range f.emitted {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeRealtime) hasHandler(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[event]
	return ok
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func customerToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"name":   "Ann",
		"email":  "ann@example.com",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fixture struct {
	svc   *session.Service
	api   *MockAPI
	rt    *fakeRealtime
	flags *storage.MemoryStore
}

func newFixture(t *testing.T, connected bool) *fixture {
	t.Helper()
	return newFixtureWithToken(t, connected, customerToken(t))
}

func newFixtureWithToken(t *testing.T, connected bool, token string) *fixture {
	t.Helper()
	api := new(MockAPI)
	rt := newFakeRealtime(connected)
	flags := storage.NewMemoryStore()
	svc := session.New(session.Options{
		Realtime:       rt,
		API:            api,
		Tokens:         auth.StaticToken(token),
		Flags:          flags,
		DeliveredDelay: 100 * time.Millisecond,
		AutoReadDelay:  100 * time.Millisecond,
		TypingTimeout:  100 * time.Millisecond,
		RequestTimeout: time.Second,
	})
	t.Cleanup(svc.Shutdown)
	return &fixture{svc: svc, api: api, rt: rt, flags: flags}
}

// withSession makes chat c1 current by loading it.
func (f *fixture) withSession(t *testing.T, messages ...models.ServerMessage) {
	t.Helper()
	chat := models.ServerChat{
		ID:        "c1",
		Status:    "active",
		Customer:  models.ServerCustomer{UserID: "u1", Name: "Ann", Email: "ann@example.com"},
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Minute),
		Messages:  messages,
	}
	f.api.On("GetChat", mock.Anything, "c1").Return(chat, nil).Once()
	require.NoError(t, f.svc.LoadSession(context.Background(), "c1"))
}

func agentMessage(id, content string, at time.Time) models.ServerMessage {
	return models.ServerMessage{
		ID:         id,
		Content:    content,
		Sender:     models.ParticipantRef{ID: "agent-1", Role: "agent"},
		SenderType: "agent",
		CreatedAt:  at,
	}
}

func customerMessage(id, content string, at time.Time) models.ServerMessage {
	return models.ServerMessage{
		ID:         id,
		Content:    content,
		Sender:     models.ParticipantRef{ID: "u1", Role: "customer"},
		SenderType: "customer",
		Status:     "sent",
		CreatedAt:  at,
	}
}
