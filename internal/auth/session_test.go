package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogin struct {
	calls  int
	tokens []string
	err    error
}

func (f *fakeLogin) login(_ context.Context, username, password string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	tok := f.tokens[0]
	if len(f.tokens) > 1 {
		f.tokens = f.tokens[1:]
	}
	return tok, nil
}

func tokenExpiring(t *testing.T, exp time.Time) string {
	t.Helper()
	return signed(t, jwt.SigningMethodHS256, []byte("backend-key"), jwt.MapClaims{
		"sub": "gateway",
		"exp": exp.Unix(),
	})
}

func TestSession_ReusesTokenUntilSkew(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	first := tokenExpiring(t, now.Add(10*time.Minute))
	second := tokenExpiring(t, now.Add(time.Hour))
	fl := &fakeLogin{tokens: []string{first, second}}

	s := NewSession(fl.login, "gw", "pw", time.Minute)
	s.now = func() time.Time { return now }

	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, tok)

	now = now.Add(5 * time.Minute)
	tok, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, tok)
	assert.Equal(t, 1, fl.calls)

	// Inside the refresh window.
	now = now.Add(4*time.Minute + 30*time.Second)
	tok, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, tok)
	assert.Equal(t, 2, fl.calls)
}

func TestSession_OpaqueTokenKeptUntilInvalidate(t *testing.T) {
	fl := &fakeLogin{tokens: []string{"opaque-1", "opaque-2"}}
	s := NewSession(fl.login, "gw", "pw", time.Minute)

	for i := 0; i < 3; i++ {
		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "opaque-1", tok)
	}

	s.Invalidate()
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-2", tok)
	assert.Equal(t, 2, fl.calls)
}

func TestSession_LoginError(t *testing.T) {
	fl := &fakeLogin{err: errors.New("bad credentials")}
	s := NewSession(fl.login, "gw", "pw", time.Minute)

	_, err := s.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")

	_, err = s.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, fl.calls)
}
