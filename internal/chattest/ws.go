package chattest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"drinkmate/supportchat/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// socketConn is one connected client. Writes are serialized by mu.
type socketConn struct {
	userID string
	conn   *websocket.Conn

	mu    sync.Mutex
	rooms map[string]struct{}
}

func (sc *socketConn) write(frame models.SocketEnvelope) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = sc.conn.WriteJSON(frame)
}

func (sc *socketConn) inRoom(chatID string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, ok := sc.rooms[chatID]
	return ok
}

func (s *Server) serveWebSocket(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	userID, err := s.validateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sc := &socketConn{userID: userID, conn: conn, rooms: make(map[string]struct{})}
	s.mu.Lock()
	s.conns[sc] = struct{}{}
	s.mu.Unlock()

	go s.readLoop(sc)
}

func (s *Server) readLoop(sc *socketConn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, sc)
		s.mu.Unlock()
		sc.conn.Close()
	}()

	for {
		var frame models.SocketEnvelope
		if err := sc.conn.ReadJSON(&frame); err != nil {
			return
		}
		s.mu.Lock()
		s.frames = append(s.frames, frame)
		s.mu.Unlock()
		s.handleFrame(sc, frame)
	}
}

func (s *Server) handleFrame(sc *socketConn, frame models.SocketEnvelope) {
	switch frame.Event {
	case models.EventJoinChat, models.EventLeaveChat:
		var ref models.ChatRef
		if json.Unmarshal(frame.Data, &ref) != nil || ref.ChatID == "" {
			return
		}
		sc.mu.Lock()
		if frame.Event == models.EventJoinChat {
			sc.rooms[ref.ChatID] = struct{}{}
		} else {
			delete(sc.rooms, ref.ChatID)
		}
		sc.mu.Unlock()

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if json.Unmarshal(frame.Data, &p) != nil || p.ChatID == "" {
			return
		}
		msg, ok := s.appendMessage(p.ChatID, models.ServerMessage{
			Content:     p.Content,
			Sender:      models.ParticipantRef{ID: sc.userID, Role: string(models.SenderCustomer)},
			SenderType:  string(models.SenderCustomer),
			MessageType: p.Type,
		})
		if ok {
			s.broadcast(p.ChatID, nil, models.EventNewMessage, models.NewMessagePayload{ChatID: p.ChatID, Message: msg})
		}

	case models.EventTypingStart, models.EventTypingStop:
		var ref models.ChatRef
		if json.Unmarshal(frame.Data, &ref) != nil || ref.ChatID == "" {
			return
		}
		s.broadcast(ref.ChatID, sc, frame.Event, models.TypingPayload{ChatID: ref.ChatID, UserID: sc.userID})
	}
}

// broadcast sends event to every connection that joined chatID, except skip.
func (s *Server) broadcast(chatID string, skip *socketConn, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame := models.SocketEnvelope{Event: event, Data: data}
	for _, sc := range s.connections() {
		if sc != skip && sc.inRoom(chatID) {
			sc.write(frame)
		}
	}
}

func (s *Server) connections() []*socketConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*socketConn, 0, len(s.conns))
	for sc := range s.conns {
		out = append(out, sc)
	}
	return out
}

// Connections is the number of open sockets.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Joined is the number of sockets currently in chatID's room.
func (s *Server) Joined(chatID string) int {
	n := 0
	for _, sc := range s.connections() {
		if sc.inRoom(chatID) {
			n++
		}
	}
	return n
}

// PushAgentMessage stores an agent message and delivers it to the chat room.
func (s *Server) PushAgentMessage(chatID, agentID, content string) (models.ServerMessage, bool) {
	msg, ok := s.appendMessage(chatID, models.ServerMessage{
		Content:    content,
		Sender:     models.ParticipantRef{ID: agentID, Name: "Support", Role: string(models.SenderAgent)},
		SenderType: string(models.SenderAgent),
		Status:     string(models.StatusDelivered),
	})
	if ok {
		s.broadcast(chatID, nil, models.EventNewMessage, models.NewMessagePayload{ChatID: chatID, Message: msg})
	}
	return msg, ok
}

// PushTyping delivers a typing event from userID to the chat room.
func (s *Server) PushTyping(chatID, userID string, typing bool) {
	event := models.EventTypingStop
	if typing {
		event = models.EventTypingStart
	}
	s.broadcast(chatID, nil, event, models.TypingPayload{ChatID: chatID, UserID: userID})
}

// DropConnections closes every socket abruptly.
func (s *Server) DropConnections() {
	for _, sc := range s.connections() {
		sc.conn.Close()
	}
}
