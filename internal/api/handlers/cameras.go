package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/pkg/dto"
)

type CameraHandler struct {
	store *alerts.Store
}

func NewCameraHandler(store *alerts.Store) *CameraHandler {
	return &CameraHandler{store: store}
}

func (h *CameraHandler) List(c *gin.Context) {
	cams := h.store.Cameras()
	resp := make([]dto.CameraResponse, 0, len(cams))
	for _, cam := range cams {
		resp = append(resp, dto.CameraToResponse(cam))
	}
	c.JSON(http.StatusOK, dto.CameraListResponse{Cameras: resp, Total: len(resp)})
}

func (h *CameraHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "camera")
	if !ok {
		return
	}
	cam, found := h.store.Camera(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return
	}
	c.JSON(http.StatusOK, dto.CameraToResponse(cam))
}
