// Package rest is the HTTP client for the chat server's REST endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"drinkmate/supportchat/internal/auth"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"

	"go.uber.org/zap"
)

const maxBodySize = 4 << 20

// APIError is a non-2xx response, or a 2xx response whose envelope reports
// success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat api: status %d: %s", e.StatusCode, e.Message)
}

// envelope is the common response wrapper {success, message, data}.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client calls the chat REST API. Authenticated calls carry the current
// token as a bearer header; calls made without a token go out unauthenticated
// and the server decides.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenSource
	log     *zap.Logger
}

// New creates a Client for baseURL (for example http://host/api).
func New(baseURL string, tokens auth.TokenSource, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = config.HTTPTimeout
	}
	if tokens == nil {
		tokens = auth.StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     logger.OrNop(log).Named("rest"),
	}
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, false, nil)
}

// CustomerChats lists the authenticated customer's chats, messages included.
func (c *Client) CustomerChats(ctx context.Context) ([]models.ServerChat, error) {
	var out struct {
		Chats []models.ServerChat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/customer", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// GetChat fetches one chat with its messages.
func (c *Client) GetChat(ctx context.Context, chatID string) (models.ServerChat, error) {
	var out models.ServerChat
	err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(chatID), nil, true, &out)
	return out, err
}

// CreateChat opens a new chat for customer.
func (c *Client) CreateChat(ctx context.Context, customer models.ServerCustomer) (models.ServerChat, error) {
	body := map[string]any{"customer": customer}
	var out models.ServerChat
	err := c.do(ctx, http.MethodPost, "/chat", body, true, &out)
	return out, err
}

// SendMessage posts a message over HTTP and returns the stored copy.
func (c *Client) SendMessage(ctx context.Context, chatID, content, messageType string) (models.ServerMessage, error) {
	body := map[string]string{"content": content, "messageType": messageType}
	var out struct {
		Message models.ServerMessage `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(chatID)+"/message", body, true, &out)
	return out.Message, err
}

// MarkRead marks the chat's messages as read.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(chatID)+"/read", nil, true, nil)
}

// UpdateMessageStatus sets the server-side status of one message.
func (c *Client) UpdateMessageStatus(ctx context.Context, chatID, messageID string, status models.MessageStatus) error {
	path := "/chat/" + url.PathEscape(chatID) + "/messages/" + url.PathEscape(messageID) + "/status"
	return c.do(ctx, http.MethodPut, path, map[string]string{"status": string(status)}, true, nil)
}

// RateChat submits the customer's rating for a chat.
func (c *Client) RateChat(ctx context.Context, chatID string, rating int, comment string) error {
	body := map[string]any{"rating": rating, "comment": comment}
	return c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(chatID)+"/rating", body, true, nil)
}

// QueueStatus reads the public queue statistics.
func (c *Client) QueueStatus(ctx context.Context) (models.QueueStats, error) {
	var out models.QueueStats
	err := c.do(ctx, http.MethodGet, "/chat/queue-status", nil, false, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if token := c.tokens.GetAuthToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.reason(resp.Status)}
	}
	if decodeErr == nil && env.Success != nil && !*env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.reason("request rejected")}
	}
	if out == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, decodeErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &APIError{StatusCode: resp.StatusCode, Message: "response has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s %s data: %w", method, path, err)
	}
	return nil
}

func (e envelope) reason(fallback string) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	default:
		return fallback
	}
}
