package chathub_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"drinkmate/supportchat/internal/chathub"
	"drinkmate/supportchat/internal/models"
)

// MockClient is an in-memory chathub.Client.
type MockClient struct {
	mu      sync.Mutex
	sent    []models.SocketEnvelope
	closed  bool
	onFrame func(models.SocketEnvelope)
	onClose func(error)
}

func (c *MockClient) Run(onFrame func(models.SocketEnvelope), onClose func(error)) {
	c.mu.Lock()
	c.onFrame, c.onClose = onFrame, onClose
	c.mu.Unlock()
}

func (c *MockClient) Send(frame models.SocketEnvelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return chathub.ErrNotConnected
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) Sent() []models.SocketEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SocketEnvelope(nil), c.sent...)
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Push simulates an inbound frame.
func (c *MockClient) Push(event string, payload any) {
	data, _ := json.Marshal(payload)
	c.mu.Lock()
	fn := c.onFrame
	c.mu.Unlock()
	fn(models.SocketEnvelope{Event: event, Data: data})
}

// Drop simulates the server closing the connection.
func (c *MockClient) Drop(cause error) {
	c.mu.Lock()
	fn := c.onClose
	c.closed = true
	c.mu.Unlock()
	fn(cause)
}

// fakeDialer counts dials. Each dial takes the next entry of results; a nil
// entry (or running past the end) succeeds with a fresh MockClient. When
// gate is set every dial blocks until it is closed.
type fakeDialer struct {
	mu      sync.Mutex
	results []error
	clients []*MockClient
	tokens  []string
	gate    chan struct{}
	dials   atomic.Int32
}

var errRefused = errors.New("connection refused")

func (d *fakeDialer) Dial(ctx context.Context, url, token string) (chathub.Client, error) {
	n := int(d.dials.Add(1)) - 1

	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
	if n < len(d.results) && d.results[n] != nil {
		return nil, d.results[n]
	}
	c := &MockClient{}
	d.clients = append(d.clients, c)
	return c, nil
}

func (d *fakeDialer) Dials() int { return int(d.dials.Load()) }

func (d *fakeDialer) Tokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

func (d *fakeDialer) LastClient() *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}

// stateRecorder collects state notifications.
type stateRecorder struct {
	mu     sync.Mutex
	states []models.ConnectionState
}

func (r *stateRecorder) record(s models.ConnectionState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) sawReconnecting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s.IsReconnecting {
			return true
		}
	}
	return false
}

func (r *stateRecorder) last() (models.ConnectionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return models.ConnectionState{}, false
	}
	return r.states[len(r.states)-1], true
}
