package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"

	"go.uber.org/zap"
)

// ErrNotConnected is returned by Emit when there is no live connection.
var ErrNotConnected = errors.New("chathub: not connected")

// State is the lifecycle state of the Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Handler receives the raw payload of an inbound event.
type Handler func(data json.RawMessage)

// Options configures a Manager. Zero values fall back to the defaults in
// the config package.
type Options struct {
	URL         string
	Tokens      auth.TokenSource
	Dialer      Dialer
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger
}

// Manager owns the single realtime connection of the process. All methods
// are safe for concurrent use.
type Manager struct {
	url         string
	tokens      auth.TokenSource
	dialer      Dialer
	maxAttempts int
	baseDelay   time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	state  State
	client Client
	// generation is bumped by every Connect and Disconnect so callbacks of
	// a superseded connection are ignored.
	generation uint64
	loopCtx    context.Context
	cancel     context.CancelFunc

	handlers map[string]Handler
	subs     map[int]func(models.ConnectionState)
	nextSub  int
	stateSeq uint64

	// notifyMu serializes state notifications; notified is the sequence
	// number of the last one delivered.
	notifyMu sync.Mutex
	notified uint64
}

// NewManager creates a disconnected Manager.
func NewManager(opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.MaxReconnectAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = config.ReconnectBaseDelay
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.StaticToken("")
	}
	log := logger.OrNop(opts.Logger)
	if opts.Dialer == nil {
		opts.Dialer = NewWebSocketDialer(log)
	}
	return &Manager{
		url:         opts.URL,
		tokens:      opts.Tokens,
		dialer:      opts.Dialer,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		log:         log.Named("chathub"),
		handlers:    make(map[string]Handler),
		subs:        make(map[int]func(models.ConnectionState)),
	}
}

// Connect establishes the connection in the background. It is a no-op while
// a connection is live or being established. Without a token any existing
// connection is torn down instead.
func (m *Manager) Connect() {
	if m.tokens.GetAuthToken() == "" {
		m.log.Debug("connect skipped, no auth token")
		m.Disconnect()
		return
	}

	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.loopCtx, m.cancel = ctx, cancel
	seq := m.setState(StateConnecting)
	m.mu.Unlock()

	m.log.Info("connecting", zap.String("url", m.url))
	m.notifyState(seq, StateConnecting)
	go m.dialLoop(ctx, gen, false)
}

// Disconnect closes the connection and stops any pending reconnection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.generation++
	prev := m.state
	client := m.client
	cancel := m.cancel
	m.client, m.cancel, m.loopCtx = nil, nil, nil
	seq := m.setState(StateDisconnected)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		client.Close()
	}
	if prev != StateDisconnected {
		m.log.Info("disconnected", zap.Stringer("from", prev))
		m.notifyState(seq, StateDisconnected)
		m.deliver(models.EventDisconnect, reasonPayload("client disconnect"))
	}
}

// Emit sends an event with a JSON-encoded payload.
func (m *Manager) Emit(event string, payload any) error {
	m.mu.Lock()
	client := m.client
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || client == nil {
		return ErrNotConnected
	}

	frame := models.SocketEnvelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		frame.Data = data
	}
	return client.Send(frame)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether a live connection exists.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// ConnectionState is the externally visible snapshot of State.
func (m *Manager) ConnectionState() models.ConnectionState {
	return toConnectionState(m.State())
}

// dialLoop dials until a connection is established, the retry budget is
// spent, or ctx is cancelled. Retries wait baseDelay*attempt.
func (m *Manager) dialLoop(ctx context.Context, gen uint64, reconnecting bool) {
	for attempt := 0; ; {
		token := m.tokens.GetAuthToken()
		if token == "" {
			if m.isCurrent(gen) {
				m.log.Info("auth token gone, abandoning connection")
				m.Disconnect()
			}
			return
		}

		client, err := m.dialer.Dial(ctx, m.url, token)
		if err == nil {
			if !m.attach(gen, client) {
				client.Close()
				return
			}
			if reconnecting {
				m.deliver(models.EventReconnect, nil)
			}
			m.deliver(models.EventConnect, nil)
			return
		}
		if ctx.Err() != nil {
			return
		}

		attempt++
		m.log.Warn("connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		m.deliver(models.EventConnectError, reasonPayload(err.Error()))

		if attempt > m.maxAttempts {
			m.giveUp(gen)
			return
		}
		if !m.transition(gen, StateReconnecting) {
			return
		}
		reconnecting = true

		timer := time.NewTimer(m.baseDelay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (m *Manager) attach(gen uint64, client Client) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	m.client = client
	seq := m.setState(StateConnected)
	m.mu.Unlock()

	m.log.Info("connected", zap.String("url", m.url))
	m.notifyState(seq, StateConnected)
	client.Run(m.dispatch, func(err error) { m.handleClosed(gen, client, err) })
	return true
}

// handleClosed reacts to an unexpected drop by reconnecting.
func (m *Manager) handleClosed(gen uint64, client Client, cause error) {
	m.mu.Lock()
	if gen != m.generation || m.client != client {
		m.mu.Unlock()
		return
	}
	m.client = nil
	seq := m.setState(StateReconnecting)
	ctx := m.loopCtx
	m.mu.Unlock()

	reason := "transport close"
	if cause != nil {
		reason = cause.Error()
	}
	m.log.Warn("connection lost", zap.String("reason", reason))
	m.notifyState(seq, StateReconnecting)
	m.deliver(models.EventDisconnect, reasonPayload(reason))
	go m.dialLoop(ctx, gen, true)
}

func (m *Manager) giveUp(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel, m.loopCtx = nil, nil
	seq := m.setState(StateDisconnected)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.log.Error("reconnection attempts exhausted", zap.Int("max_attempts", m.maxAttempts))
	m.notifyState(seq, StateDisconnected)
}

// setState records a transition and returns its sequence number. Callers
// hold m.mu.
func (m *Manager) setState(to State) uint64 {
	m.state = to
	m.stateSeq++
	return m.stateSeq
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

func (m *Manager) transition(gen uint64, to State) bool {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	changed := m.state != to
	var seq uint64
	if changed {
		seq = m.setState(to)
	}
	m.mu.Unlock()

	if changed {
		m.notifyState(seq, to)
	}
	return true
}

func reasonPayload(reason string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"reason": reason})
	return data
}
