package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sentinel/internal/actions"
	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/backend"
	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/storage"
	"github.com/your-org/sentinel/pkg/dto"
)

// ClipPresigner hands out playback URLs for alert clips.
type ClipPresigner interface {
	PresignClip(ctx context.Context, key string) (string, time.Time, error)
}

type AlertHandler struct {
	store      *alerts.Store
	dispatcher *actions.Dispatcher
	clips      ClipPresigner
}

// NewAlertHandler builds the alert routes. clips may be nil when no clip
// store is configured.
func NewAlertHandler(store *alerts.Store, dispatcher *actions.Dispatcher, clips ClipPresigner) *AlertHandler {
	return &AlertHandler{store: store, dispatcher: dispatcher, clips: clips}
}

func (h *AlertHandler) List(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	list := view.Alerts()
	c.JSON(http.StatusOK, dto.AlertListResponse{
		Alerts:      dto.AlertsToResponse(list),
		Total:       len(list),
		UnseenCount: alerts.UnseenCount(list),
	})
}

func (h *AlertHandler) Unseen(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	unseen := view.Unseen()
	c.JSON(http.StatusOK, dto.UnseenResponse{
		Alerts: dto.AlertsToResponse(unseen),
		Count:  len(unseen),
	})
}

func (h *AlertHandler) Counts(c *gin.Context) {
	view, ok := h.view(c)
	if !ok {
		return
	}
	counts := alerts.CountByState(view.Alerts())
	c.JSON(http.StatusOK, dto.CountsResponse{
		Pending:       counts.Pending,
		Confirmed:     counts.Confirmed,
		FalsePositive: counts.FalsePositive,
		Total:         counts.Total(),
	})
}

func (h *AlertHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	view := alerts.NewView(h.store)
	view.SelectAlert(&id)
	a, found := view.Selected()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, dto.AlertToResponse(a))
}

func (h *AlertHandler) Clip(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	a, found := h.store.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if a.ClipReference == nil || *a.ClipReference == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert has no clip"})
		return
	}
	if h.clips == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clip storage not configured"})
		return
	}

	url, expires, err := h.clips.PresignClip(c.Request.Context(), *a.ClipReference)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			c.JSON(http.StatusNotFound, gin.H{"error": "clip not available"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ClipResponse{URL: url, ExpiresAt: expires.UTC().Format(time.RFC3339)})
}

func (h *AlertHandler) MarkSeen(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	var req dto.MarkSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.dispatcher.MarkSeen(c.Request.Context(), id, models.AlertState(*req.State))
	if err != nil {
		actionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AlertToResponse(a))
}

func (h *AlertHandler) FalsePositive(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	a, err := h.dispatcher.MarkFalsePositive(c.Request.Context(), id)
	if err != nil {
		actionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AlertToResponse(a))
}

func (h *AlertHandler) EditDescription(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	var req dto.DescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.dispatcher.EditDescription(c.Request.Context(), id, *req.Description)
	if err != nil {
		actionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AlertToResponse(a))
}

func (h *AlertHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "alert")
	if !ok {
		return
	}
	if err := h.dispatcher.Delete(c.Request.Context(), id); err != nil {
		actionFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// view builds a read view from the optional ?camera_id= filter.
func (h *AlertHandler) view(c *gin.Context) (*alerts.View, bool) {
	view := alerts.NewView(h.store)
	cam, ok := cameraFilter(c)
	if !ok {
		return nil, false
	}
	view.SelectCamera(cam)
	return view, true
}

func cameraFilter(c *gin.Context) (*int64, bool) {
	raw := c.Query("camera_id")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera_id"})
		return nil, false
	}
	return &id, true
}

func parseID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return 0, false
	}
	return id, true
}

// actionFailed maps dispatcher errors. Backend 404/409/422 pass through;
// other backend failures are 502.
func actionFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, actions.ErrUnknownAlert):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	case errors.Is(err, actions.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var actionErr *actions.ActionError
	if !errors.As(err, &actionErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusBadGateway
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
			status = apiErr.StatusCode
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
