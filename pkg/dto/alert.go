package dto

import (
	"encoding/json"
	"time"

	"github.com/your-org/sentinel/internal/models"
)

// AlertPayload is one alert record as delivered by the backend, either in a
// batch fetch or in a new-alert push. Pointer fields distinguish "absent" from
// the zero value.
type AlertPayload struct {
	ID              *int64     `json:"id"`
	CameraID        *int64     `json:"cameraId"`
	Message         *string    `json:"message"`
	OccurredAt      *time.Time `json:"occurredAt"`
	ConfidenceScore *float64   `json:"confidenceScore"`
	State           *int       `json:"state"`
	ClipReference   *string    `json:"clipReference"`
	Description     *string    `json:"description"`
}

// Patch converts the payload into a merge patch. A missing id yields ID 0,
// which the merge step rejects.
func (p AlertPayload) Patch() models.AlertPatch {
	patch := models.AlertPatch{
		CameraID:      p.CameraID,
		Message:       p.Message,
		OccurredAt:    p.OccurredAt,
		ClipReference: p.ClipReference,
		Description:   p.Description,
	}
	if p.ID != nil {
		patch.ID = *p.ID
	}
	if p.ConfidenceScore != nil {
		score := clampScore(*p.ConfidenceScore)
		patch.ConfidenceScore = &score
	}
	if p.State != nil {
		st := models.AlertState(*p.State)
		patch.State = &st
	}
	return patch
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// DescriptionUpdate is the partial payload of a description-updated push.
type DescriptionUpdate struct {
	ID          *int64  `json:"id"`
	Description *string `json:"description"`
}

// PushFrame is the envelope of every message on the backend push channel.
type PushFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarkSeenBody is sent to POST mark-seen/{id}.
type MarkSeenBody struct {
	State int `json:"state"`
}

// EditDescriptionBody is sent to PUT edit-description/{id}.
type EditDescriptionBody struct {
	Description string `json:"description"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// --- Gateway responses ---

type AlertResponse struct {
	ID              int64   `json:"id"`
	CameraID        int64   `json:"camera_id"`
	Message         string  `json:"message"`
	OccurredAt      string  `json:"occurred_at"`
	ConfidenceScore float64 `json:"confidence_score"`
	State           int     `json:"state"`
	StateName       string  `json:"state_name"`
	HasClip         bool    `json:"has_clip"`
	ClipURL         string  `json:"clip_url,omitempty"`
	Description     *string `json:"description"`
}

type AlertListResponse struct {
	Alerts      []AlertResponse `json:"alerts"`
	Total       int             `json:"total"`
	UnseenCount int             `json:"unseen_count"`
}

type UnseenResponse struct {
	Alerts []AlertResponse `json:"alerts"`
	Count  int             `json:"count"`
}

type CountsResponse struct {
	Pending       int `json:"pending"`
	Confirmed     int `json:"confirmed"`
	FalsePositive int `json:"false_positive"`
	Total         int `json:"total"`
}

type MarkSeenRequest struct {
	State *int `json:"state" binding:"required"`
}

type DescriptionRequest struct {
	Description *string `json:"description" binding:"required"`
}

type ClipResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// WSEvent is a WebSocket message pushed to browser views.
type WSEvent struct {
	Type        string         `json:"type"` // alert_upserted, alert_removed, alerts_reset
	CameraID    int64          `json:"camera_id,omitempty"`
	Alert       *AlertResponse `json:"alert,omitempty"`
	UnseenCount int            `json:"unseen_count"`
}

// AlertToResponse renders an alert for the gateway API.
func AlertToResponse(a models.Alert) AlertResponse {
	r := AlertResponse{
		ID:              a.ID,
		CameraID:        a.CameraID,
		Message:         a.Message,
		OccurredAt:      a.OccurredAt.UTC().Format(time.RFC3339),
		ConfidenceScore: a.ConfidenceScore,
		State:           int(a.State),
		StateName:       a.State.String(),
		HasClip:         a.ClipReference != nil && *a.ClipReference != "",
		Description:     a.Description,
	}
	if r.HasClip {
		r.ClipURL = "/v1/alerts/" + formatID(a.ID) + "/clip"
	}
	return r
}

func AlertsToResponse(alerts []models.Alert) []AlertResponse {
	resp := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, AlertToResponse(a))
	}
	return resp
}
