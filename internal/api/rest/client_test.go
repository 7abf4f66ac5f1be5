package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"drinkmate/supportchat/internal/api/rest"
	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/chattest"
	"drinkmate/supportchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*chattest.Server, *rest.Client) {
	t.Helper()
	srv := chattest.New()
	t.Cleanup(srv.Close)
	token := srv.IssueToken("u1", "Ann", "ann@example.com")
	return srv, rest.New(srv.APIURL(), auth.StaticToken(token), 0, nil)
}

func TestHealth(t *testing.T) {
	// Arrange
	srv, c := newClient(t)
	ctx := context.Background()

	// Act + Assert
	require.NoError(t, c.Health(ctx))

	srv.SetHealthy(false)
	err := c.Health(ctx)
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestCreateChatThenList(t *testing.T) {
	// Arrange
	_, c := newClient(t)
	ctx := context.Background()

	// Act
	created, err := c.CreateChat(ctx, models.ServerCustomer{UserID: "u1", Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	chats, err := c.CustomerChats(ctx)

	// Assert
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, created.ID, chats[0].ID)
	assert.Equal(t, "active", chats[0].Status)
	assert.Equal(t, "Ann", chats[0].Customer.Name)
}

func TestSendMessageAndGetChat(t *testing.T) {
	// Arrange
	srv, c := newClient(t)
	ctx := context.Background()
	chat := srv.AddChat(models.ServerChat{Customer: models.ServerCustomer{UserID: "u1"}})

	// Act
	msg, err := c.SendMessage(ctx, chat.ID, "hello", "text")
	require.NoError(t, err)
	fetched, err := c.GetChat(ctx, chat.ID)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	require.Len(t, fetched.Messages, 1)
	assert.Equal(t, msg.ID, fetched.Messages[0].ID)
	assert.Equal(t, models.SenderCustomer, fetched.Messages[0].ToMessage().Sender)
}

func TestMarkReadAndUpdateStatus(t *testing.T) {
	// Arrange
	srv, c := newClient(t)
	ctx := context.Background()
	chat := srv.AddChat(models.ServerChat{Customer: models.ServerCustomer{UserID: "u1"}})
	agentMsg, ok := srv.PushAgentMessage(chat.ID, "a1", "how can I help?")
	require.True(t, ok)
	own, err := c.SendMessage(ctx, chat.ID, "my soda maker leaks", "text")
	require.NoError(t, err)

	// Act
	require.NoError(t, c.MarkRead(ctx, chat.ID))
	require.NoError(t, c.UpdateMessageStatus(ctx, chat.ID, own.ID, models.StatusDelivered))

	// Assert
	stored, _ := srv.Chat(chat.ID)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, agentMsg.ID, stored.Messages[0].ID)
	assert.True(t, stored.Messages[0].IsRead)
	assert.Equal(t, "delivered", stored.Messages[1].Status)
}

func TestRateChat(t *testing.T) {
	// Arrange
	srv, c := newClient(t)
	chat := srv.AddChat(models.ServerChat{Customer: models.ServerCustomer{UserID: "u1"}})

	// Act
	err := c.RateChat(context.Background(), chat.ID, 4, "quick answer")

	// Assert
	require.NoError(t, err)
	r, ok := srv.Rating(chat.ID)
	require.True(t, ok)
	assert.Equal(t, chattest.Rating{Rating: 4, Comment: "quick answer"}, r)
}

func TestQueueStatusIsPublic(t *testing.T) {
	// Arrange
	srv := chattest.New()
	defer srv.Close()
	agents := 3
	srv.SetQueueStatus(models.QueueStats{
		TotalActiveChats:    7,
		AvailableAgents:     &agents,
		AverageResponseTime: 4,
		CurrentLoad:         models.LoadHigh,
	})
	c := rest.New(srv.APIURL(), nil, 0, nil)

	// Act
	q, err := c.QueueStatus(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 7, q.TotalActiveChats)
	require.NotNil(t, q.AvailableAgents)
	assert.Equal(t, 3, *q.AvailableAgents)
	assert.Equal(t, models.LoadHigh, q.CurrentLoad)
}

func TestUnauthenticated(t *testing.T) {
	// Arrange
	srv := chattest.New()
	defer srv.Close()
	c := rest.New(srv.APIURL(), auth.StaticToken(""), 0, nil)

	// Act
	_, err := c.CustomerChats(context.Background())

	// Assert
	var apiErr *rest.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Authorization token missing", apiErr.Message)
}

func TestInjectedFailure(t *testing.T) {
	// Arrange
	srv, c := newClient(t)
	chat := srv.AddChat(models.ServerChat{Customer: models.ServerCustomer{UserID: "u1"}})
	srv.Fail("POST /api/chat/:id/message", http.StatusBadGateway)

	// Act
	_, err := c.SendMessage(context.Background(), chat.ID, "hi", "text")

	// Assert
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, 1, srv.Requests("POST /api/chat/:id/message"))
}

func TestEnvelopeRejection(t *testing.T) {
	// Arrange
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"message":"chat closed"}`))
	}))
	defer ts.Close()
	c := rest.New(ts.URL, auth.StaticToken("tok"), 0, nil)

	// Act
	err := c.RateChat(context.Background(), "c1", 5, "")

	// Assert
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "chat closed", apiErr.Message)
}

func TestCancelledContext(t *testing.T) {
	// Arrange
	_, c := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	err := c.Health(ctx)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
}
