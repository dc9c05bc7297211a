package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	backend  Pinger
	clips    Pinger
	push     func() bool
	hydrated func() bool
}

// NewSystemHandler builds the health routes. clips may be nil.
func NewSystemHandler(backend Pinger, clips Pinger, push, hydrated func() bool) *SystemHandler {
	return &SystemHandler{backend: backend, clips: clips, push: push, hydrated: hydrated}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.backend.Ping(ctx); err != nil {
		checks["backend"] = err.Error()
		healthy = false
	} else {
		checks["backend"] = "ok"
	}

	if h.push != nil && h.push() {
		checks["push"] = "ok"
	} else {
		checks["push"] = "disconnected"
		healthy = false
	}

	if h.hydrated != nil && h.hydrated() {
		checks["alerts"] = "ok"
	} else {
		checks["alerts"] = "not loaded"
		healthy = false
	}

	// Clip playback is optional; a failure does not make the gateway unready.
	if h.clips != nil {
		if err := h.clips.Ping(ctx); err != nil {
			checks["clips"] = err.Error()
		} else {
			checks["clips"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
