package chathub

import (
	"encoding/json"

	"drinkmate/supportchat/internal/models"

	"go.uber.org/zap"
)

// On registers the handler for an event, replacing any previous one.
func (m *Manager) On(event string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		delete(m.handlers, event)
		return
	}
	m.handlers[event] = h
}

// Off removes the handler for an event.
func (m *Manager) Off(event string) {
	m.mu.Lock()
	delete(m.handlers, event)
	m.mu.Unlock()
}

// SubscribeState registers fn for connection state changes and returns the
// function that removes it. Notifications are delivered one at a time in
// transition order.
func (m *Manager) SubscribeState(fn func(models.ConnectionState)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) dispatch(frame models.SocketEnvelope) {
	m.deliver(frame.Event, frame.Data)
}

// deliver runs the handler for event, if any. A panicking handler is logged
// and does not take the read loop down.
func (m *Manager) deliver(event string, data json.RawMessage) {
	m.mu.Lock()
	h := m.handlers[event]
	m.mu.Unlock()
	if h == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("event handler panicked", zap.String("event", event), zap.Any("panic", r))
		}
	}()
	h(data)
}

// notifyState delivers transition seq to the subscribers. A transition
// older than one already delivered is dropped, so subscribers never see a
// superseded state last. Subscribers must not call Connect or Disconnect.
func (m *Manager) notifyState(seq uint64, s State) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.notified {
		return
	}
	m.notified = seq

	m.mu.Lock()
	subs := make([]func(models.ConnectionState), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	cs := toConnectionState(s)
	for _, fn := range subs {
		fn(cs)
	}
}

func toConnectionState(s State) models.ConnectionState {
	return models.ConnectionState{
		IsConnected:    s == StateConnected,
		IsReconnecting: s == StateReconnecting,
	}
}
