package chattest

import (
	"net/http"
	"strings"

	"drinkmate/supportchat/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	s.mu.Lock()
	ok := s.healthy
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) queueStatus(c *gin.Context) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": q})
}

func (s *Server) customerChats(c *gin.Context) {
	chats := s.customerChatsOf(c.GetString(ctxUserKey))
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"chats": chats}})
}

func (s *Server) getChat(c *gin.Context) {
	chat, ok := s.Chat(c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chat})
}

func (s *Server) createChat(c *gin.Context) {
	var body struct {
		Customer models.ServerCustomer `json:"customer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Customer.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "customer.userId is required"})
		return
	}
	if body.Customer.UserID != c.GetString(ctxUserKey) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "customer does not match token"})
		return
	}
	chat := s.AddChat(models.ServerChat{Customer: body.Customer})
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": chat})
}

func (s *Server) postMessage(c *gin.Context) {
	var body struct {
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "content is required"})
		return
	}
	chatID := c.Param("id")
	msg, ok := s.appendMessage(chatID, models.ServerMessage{
		Content:     body.Content,
		Sender:      models.ParticipantRef{ID: c.GetString(ctxUserKey), Role: string(models.SenderCustomer)},
		SenderType:  string(models.SenderCustomer),
		MessageType: body.MessageType,
		Status:      string(models.StatusSent),
	})
	if !ok {
		notFound(c)
		return
	}
	s.broadcast(chatID, nil, models.EventNewMessage, models.NewMessagePayload{ChatID: chatID, Message: msg})
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"message": msg}})
}

func (s *Server) markRead(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[c.Param("id")]
	if !ok {
		notFound(c)
		return
	}
	for i := range chat.Messages {
		if chat.Messages[i].SenderType != string(models.SenderCustomer) {
			chat.Messages[i].IsRead = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) updateStatus(c *gin.Context) {
	var body struct {
		Status models.MessageStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[c.Param("id")]
	if !ok {
		notFound(c)
		return
	}
	for i := range chat.Messages {
		if chat.Messages[i].ID == c.Param("messageId") {
			chat.Messages[i].Status = string(body.Status)
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Message not found"})
}

func (s *Server) rateChat(c *gin.Context) {
	var body Rating
	if err := c.ShouldBindJSON(&body); err != nil || body.Rating < 1 || body.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "rating must be between 1 and 5"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[c.Param("id")]; !ok {
		notFound(c)
		return
	}
	s.ratings[c.Param("id")] = body
	c.JSON(http.StatusOK, gin.H{"success": true})
}
