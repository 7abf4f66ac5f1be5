package chathub

import (
	"encoding/json"
	"time"

	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// readPump decodes inbound frames and hands them to onFrame until the
// connection fails or is closed.
func (c *WebSocketClient) readPump(onFrame func(models.SocketEnvelope), onClose func(error)) {
	var cause error
	defer func() {
		c.Close()
		c.Conn.Close()
		onClose(cause)
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			cause = err
			return
		}

		var frame models.SocketEnvelope
		if err := json.Unmarshal(message, &frame); err != nil {
			c.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		if frame.Event == "" {
			continue
		}
		onFrame(frame)
	}
}

// writePump writes queued frames, one per websocket message, and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			data, err := json.Marshal(frame)
			if err != nil {
				c.log.Error("encoding outbound frame", zap.String("event", frame.Event), zap.Error(err))
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("websocket write failed", zap.String("event", frame.Event), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
