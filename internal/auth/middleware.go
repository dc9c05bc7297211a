package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	headerName     = "X-API-Key"
	tokenQueryName = "token"
	subjectKey     = "auth.subject"
)

// TokenVerifier checks browser tokens issued by the backend login.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier returns nil when secret is empty, which disables bearer
// authentication.
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify returns the token subject.
func (v *TokenVerifier) Verify(raw string) (string, error) {
	token, err := v.parser.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("read subject: %w", err)
	}
	return sub, nil
}

// Middleware accepts either the X-API-Key header or a backend-issued JWT
// (Authorization: Bearer, or ?token= for browser WebSockets). With neither
// configured, authentication is disabled.
func Middleware(apiKey string, verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" && verifier == nil {
			c.Next()
			return
		}

		if provided := c.GetHeader(headerName); provided != "" && apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "invalid API key",
				})
				return
			}
			c.Set(subjectKey, "api-key")
			c.Next()
			return
		}

		raw := bearerToken(c)
		if raw == "" || verifier == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing credentials",
			})
			return
		}

		sub, err := verifier.Verify(raw)
		if err != nil {
			status := http.StatusForbidden
			if errors.Is(err, jwt.ErrTokenExpired) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(subjectKey, sub)
		c.Next()
	}
}

// Subject returns who the request was authenticated as, if anyone.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query(tokenQueryName)
}
