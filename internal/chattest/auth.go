package chattest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "supportchat-test"
	ctxUserKey = "userId"
)

// IssueToken signs an HS256 token carrying the customer identity claims.
func (s *Server) IssueToken(userID, name, email string) string {
	claims := jwt.MapClaims{
		"userId": userID,
		"name":   name,
		"email":  email,
		"exp":    time.Now().Add(72 * time.Hour).Unix(),
		"iss":    issuer,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("chattest: signing token: %v", err))
	}
	return token
}

func (s *Server) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", errors.New("token has no userId")
	}
	return userID, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") || len(header) == len("Bearer ") {
		return "", false
	}
	return header[len("Bearer "):], true
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization token missing"})
		return
	}
	userID, err := s.validateToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token or expired"})
		return
	}
	c.Set(ctxUserKey, userID)
	c.Next()
}
