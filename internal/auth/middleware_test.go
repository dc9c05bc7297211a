package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func newRouter(apiKey string, v *TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(apiKey, v))
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})
	return r
}

func TestMiddleware(t *testing.T) {
	valid := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "operator-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "operator-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "x"})

	tests := []struct {
		name    string
		apiKey  string
		secret  string
		url     string
		headers map[string]string
		status  int
		subject string
	}{
		{name: "disabled", url: "/x", status: http.StatusOK},
		{name: "api key ok", apiKey: "k1", url: "/x", headers: map[string]string{"X-API-Key": "k1"}, status: http.StatusOK, subject: "api-key"},
		{name: "api key wrong", apiKey: "k1", url: "/x", headers: map[string]string{"X-API-Key": "nope"}, status: http.StatusForbidden},
		{name: "missing", apiKey: "k1", secret: testSecret, url: "/x", status: http.StatusUnauthorized},
		{name: "bearer ok", secret: testSecret, url: "/x", headers: map[string]string{"Authorization": "Bearer " + valid}, status: http.StatusOK, subject: "operator-1"},
		{name: "query token ok", secret: testSecret, url: "/x?token=" + valid, status: http.StatusOK, subject: "operator-1"},
		{name: "expired", secret: testSecret, url: "/x", headers: map[string]string{"Authorization": "Bearer " + expired}, status: http.StatusUnauthorized},
		{name: "wrong key", secret: testSecret, url: "/x", headers: map[string]string{"Authorization": "Bearer " + wrongKey}, status: http.StatusForbidden},
		{name: "malformed header", secret: testSecret, url: "/x", headers: map[string]string{"Authorization": "Basic abc"}, status: http.StatusUnauthorized},
		{name: "bearer without verifier", apiKey: "k1", url: "/x", headers: map[string]string{"Authorization": "Bearer " + valid}, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.apiKey, NewTokenVerifier(tt.secret))
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.subject, w.Body.String())
			}
		})
	}
}

func TestTokenVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	tok := signed(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "x"})

	_, err := v.Verify(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestNewTokenVerifier_EmptySecret(t *testing.T) {
	assert.Nil(t, NewTokenVerifier(""))
}
