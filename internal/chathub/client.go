package chathub

import (
	"context"

	"drinkmate/supportchat/internal/models"
)

// Client is one live transport connection to the chat server. It abstracts
// the underlying mechanism so the manager can be driven by a websocket in
// production and by a fake in tests.
type Client interface {
	// Run starts the client's read and write pumps. onFrame is invoked for
	// every inbound frame, sequentially, on the read goroutine. onClose is
	// invoked exactly once when the connection ends, with the cause.
	Run(onFrame func(models.SocketEnvelope), onClose func(error))
	// Send queues a frame for the write pump. It never blocks on the
	// network and returns ErrNotConnected once the client is closed.
	Send(frame models.SocketEnvelope) error
	// Close shuts the connection down. Safe to call more than once.
	Close()
}

// Dialer opens a Client. token is the auth payload of the handshake.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Client, error)
}
