package models

import "encoding/json"

// Outbound socket events.
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Inbound socket events. Typing events share their names with the outbound ones.
const (
	EventNewMessage = "new_message"
)

// Transport lifecycle events, raised locally by the connection manager.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
	EventReconnect    = "reconnect"
)

// SocketEnvelope is the frame exchanged over the websocket in both directions.
type SocketEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatRef addresses a conversation channel (join/leave/typing outbound).
type ChatRef struct {
	ChatID string `json:"chatId"`
}

// SendMessagePayload is the body of an outbound send_message event.
type SendMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// NewMessagePayload is the body of an inbound new_message event.
type NewMessagePayload struct {
	ChatID  string        `json:"chatId"`
	Message ServerMessage `json:"message"`
}

// TypingPayload is the body of an inbound typing_start/typing_stop event.
type TypingPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// ConnectionState is the process-wide view of the realtime connection.
type ConnectionState struct {
	IsConnected    bool `json:"isConnected"`
	IsReconnecting bool `json:"isReconnecting"`
}
