package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginFunc exchanges credentials for a backend token.
type LoginFunc func(ctx context.Context, username, password string) (string, error)

// Session holds the gateway's own backend token and renews it shortly
// before it expires. Tokens without an exp claim are kept until Invalidate.
type Session struct {
	login    LoginFunc
	username string
	password string
	skew     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewSession(login LoginFunc, username, password string, skew time.Duration) *Session {
	return &Session{
		login:    login,
		username: username,
		password: password,
		skew:     skew,
		now:      time.Now,
	}
}

// Token implements backend.TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expires.IsZero() || s.now().Add(s.skew).Before(s.expires)) {
		return s.token, nil
	}

	tok, err := s.login(ctx, s.username, s.password)
	if err != nil {
		return "", fmt.Errorf("backend login: %w", err)
	}

	exp, err := expiry(tok)
	if err != nil {
		slog.Warn("backend token has unreadable claims", "error", err)
	}
	s.token = tok
	s.expires = exp
	slog.Info("backend session established", "user", s.username, "expires", exp)
	return tok, nil
}

// Invalidate forces a fresh login on the next Token call.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

// expiry reads the exp claim without verifying the signature; the gateway
// does not hold the key for its own backend session.
func expiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}
