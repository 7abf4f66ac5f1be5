// Package auth is the read-only view of the host application's login state.
// Token lifecycle is owned by the host; chat components only read it.
package auth

import (
	"errors"
	"fmt"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when an identity is requested while logged out.
var ErrNoToken = errors.New("auth: no token")

// TokenSource exposes the current session token. An empty string means
// there is no authenticated user. Implementations must be cheap and free of
// side effects.
type TokenSource interface {
	GetAuthToken() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) GetAuthToken() string { return string(t) }

// Session is a TokenSource whose token is written by the host application
// (login/logout) and read by the chat core.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession creates a session holding token (may be empty).
func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) GetAuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the token. Pass "" on logout.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Identity is the customer identity carried in the token claims.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// IdentityOf decodes the identity claims of the source's current token.
func IdentityOf(src TokenSource) (Identity, error) {
	if src == nil {
		return Identity{}, ErrNoToken
	}
	return IdentityFromToken(src.GetAuthToken())
}

// IdentityFromToken reads the identity claims without verifying the
// signature; the server verifies the token on every request.
func IdentityFromToken(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("auth: parse token: %w", err)
	}

	id := firstString(claims, "userId", "id", "_id", "sub")
	if id == "" {
		return Identity{}, errors.New("auth: token carries no user id")
	}

	return Identity{
		UserID: id,
		Name:   firstString(claims, "name", "username"),
		Email:  firstString(claims, "email"),
	}, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
