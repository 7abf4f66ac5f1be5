package chathub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	Conn *websocket.Conn

	send      chan models.SocketEnvelope
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	log       *zap.Logger
}

// NewWebSocketClient wraps an established connection.
func NewWebSocketClient(conn *websocket.Conn, log *zap.Logger) *WebSocketClient {
	return &WebSocketClient{
		Conn: conn,
		send: make(chan models.SocketEnvelope, config.SendBufferSize),
		done: make(chan struct{}),
		log:  logger.OrNop(log),
	}
}

// Run starts the pumps.
func (c *WebSocketClient) Run(onFrame func(models.SocketEnvelope), onClose func(error)) {
	go c.writePump()
	go c.readPump(onFrame, onClose)
}

func (c *WebSocketClient) Send(frame models.SocketEnvelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("chathub: send buffer full, dropping %q", frame.Event)
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// WebSocketDialer dials the chat server with gorilla/websocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Log    *zap.Logger
}

// NewWebSocketDialer returns a dialer with a bounded handshake.
func NewWebSocketDialer(log *zap.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		Log: logger.OrNop(log),
	}
}

// Dial passes the token as a bearer Authorization header on the upgrade request.
func (d *WebSocketDialer) Dial(ctx context.Context, url, token string) (Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := d.Dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("chathub: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("chathub: dial %s: %w", url, err)
	}
	return NewWebSocketClient(conn, d.Log), nil
}
