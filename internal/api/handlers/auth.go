package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sentinel/internal/backend"
	"github.com/your-org/sentinel/pkg/dto"
)

// LoginFunc exchanges operator credentials for a backend token.
type LoginFunc func(ctx context.Context, username, password string) (string, error)

type AuthHandler struct {
	login LoginFunc
}

func NewAuthHandler(login LoginFunc) *AuthHandler {
	return &AuthHandler{login: login}
}

// Login proxies operator credentials to the backend and returns its token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		slog.Warn("operator login failed", "user", req.Username, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "login unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}
