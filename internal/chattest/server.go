// Package chattest is an in-process chat server for tests: the REST
// endpoints and the websocket event channel the client core talks to.
package chattest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"drinkmate/supportchat/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server is a fake chat backend. Create it with New and Close it when done.
type Server struct {
	http   *httptest.Server
	secret []byte

	mu       sync.Mutex
	healthy  bool
	queue    models.QueueStats
	chats    map[string]*models.ServerChat
	ratings  map[string]Rating
	failures map[string]int
	requests map[string]int
	conns    map[*socketConn]struct{}
	frames   []models.SocketEnvelope
}

// Rating is a submitted chat rating.
type Rating struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// New starts a healthy server with an empty queue.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:   []byte(uuid.NewString()),
		healthy:  true,
		queue:    models.QueueStats{CurrentLoad: models.LoadLow, AverageResponseTime: 2},
		chats:    make(map[string]*models.ServerChat),
		ratings:  make(map[string]Rating),
		failures: make(map[string]int),
		requests: make(map[string]int),
		conns:    make(map[*socketConn]struct{}),
	}
	s.http = httptest.NewServer(s.router())
	return s
}

// Close disconnects every socket and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.http.Close()
}

// APIURL is the REST base URL.
func (s *Server) APIURL() string { return s.http.URL + "/api" }

// SocketURL is the websocket endpoint.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.track)

	r.GET("/ws", s.serveWebSocket)

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.GET("/chat/queue-status", s.queueStatus)

	chat := api.Group("/chat", s.requireAuth)
	chat.GET("/customer", s.customerChats)
	chat.POST("", s.createChat)
	chat.GET("/:id", s.getChat)
	chat.POST("/:id/message", s.postMessage)
	chat.POST("/:id/read", s.markRead)
	chat.PUT("/:id/messages/:messageId/status", s.updateStatus)
	chat.POST("/:id/rating", s.rateChat)
	return r
}

// track counts requests per route and applies injected failures.
func (s *Server) track(c *gin.Context) {
	key := c.Request.Method + " " + c.FullPath()
	s.mu.Lock()
	s.requests[key]++
	status := s.failures[key]
	s.mu.Unlock()

	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"success": false, "message": "injected failure"})
		return
	}
	c.Next()
}

// Fail makes every request to route (for example "POST /api/chat/:id/message")
// answer with status. A zero status clears the failure.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Requests returns how many requests hit route.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// SetHealthy controls the /health answer.
func (s *Server) SetHealthy(ok bool) {
	s.mu.Lock()
	s.healthy = ok
	s.mu.Unlock()
}

// SetQueueStatus replaces the queue statistics.
func (s *Server) SetQueueStatus(q models.QueueStats) {
	s.mu.Lock()
	s.queue = q
	s.mu.Unlock()
}

// AddChat seeds a chat. Missing ids and timestamps are filled in.
func (s *Server) AddChat(chat models.ServerChat) models.ServerChat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Status == "" {
		chat.Status = string(models.SessionActive)
	}
	now := time.Now().UTC()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	if chat.UpdatedAt.IsZero() {
		chat.UpdatedAt = chat.CreatedAt
	}
	stored := chat
	stored.Messages = append([]models.ServerMessage(nil), chat.Messages...)
	s.chats[chat.ID] = &stored
	return chat
}

// Chat returns a copy of the stored chat.
func (s *Server) Chat(id string) (models.ServerChat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return models.ServerChat{}, false
	}
	return copyChat(chat), true
}

// Rating returns the rating submitted for a chat.
func (s *Server) Rating(chatID string) (Rating, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[chatID]
	return r, ok
}

// Frames returns every event received over websockets, in arrival order.
func (s *Server) Frames() []models.SocketEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SocketEnvelope(nil), s.frames...)
}

// FramesFor returns the received events named event.
func (s *Server) FramesFor(event string) []models.SocketEnvelope {
	var out []models.SocketEnvelope
	for _, f := range s.Frames() {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) customerChatsOf(userID string) []models.ServerChat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ServerChat, 0)
	for _, chat := range s.chats {
		if chat.Customer.UserID == userID {
			out = append(out, copyChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// appendMessage stores msg in chat and returns the stored copy.
func (s *Server) appendMessage(chatID string, msg models.ServerMessage) (models.ServerMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return models.ServerMessage{}, false
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	chat.Messages = append(chat.Messages, msg)
	chat.LastMessageAt = msg.CreatedAt
	chat.UpdatedAt = msg.CreatedAt
	return msg, true
}

func copyChat(chat *models.ServerChat) models.ServerChat {
	out := *chat
	out.Messages = append([]models.ServerMessage(nil), chat.Messages...)
	return out
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
}
