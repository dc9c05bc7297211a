package dto

import (
	"strconv"

	"github.com/your-org/sentinel/internal/models"
)

// CameraPayload is a camera record as returned by the backend.
type CameraPayload struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Active     bool    `json:"active"`
	External   bool    `json:"external"`
	StreamURL  string  `json:"streamUrl"`
	AlertCount int     `json:"alertCount"`
}

func (p CameraPayload) Model() models.Camera {
	kind := models.StreamKindInternal
	if p.External {
		kind = models.StreamKindExternal
	}
	return models.Camera{
		ID:         p.ID,
		Name:       p.Name,
		Address:    p.Address,
		Position:   models.Position{Lat: p.Lat, Lng: p.Lng},
		Active:     p.Active,
		Stream:     models.StreamRef{Kind: kind, URL: p.StreamURL},
		AlertCount: p.AlertCount,
	}
}

type CameraResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Active     bool    `json:"active"`
	StreamKind string  `json:"stream_kind"`
	StreamURL  string  `json:"stream_url"`
	AlertCount int     `json:"alert_count"`
}

type CameraListResponse struct {
	Cameras []CameraResponse `json:"cameras"`
	Total   int              `json:"total"`
}

func CameraToResponse(c models.Camera) CameraResponse {
	return CameraResponse{
		ID:         c.ID,
		Name:       c.Name,
		Address:    c.Address,
		Lat:        c.Position.Lat,
		Lng:        c.Position.Lng,
		Active:     c.Active,
		StreamKind: string(c.Stream.Kind),
		StreamURL:  c.Stream.URL,
		AlertCount: c.AlertCount,
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
