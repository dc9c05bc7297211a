package models

import (
	"fmt"
	"time"
)

type AlertState int

const (
	AlertStatePending       AlertState = 0
	AlertStateConfirmed     AlertState = 1
	AlertStateFalsePositive AlertState = 2
)

func (s AlertState) Valid() bool {
	return s >= AlertStatePending && s <= AlertStateFalsePositive
}

func (s AlertState) String() string {
	switch s {
	case AlertStatePending:
		return "pending"
	case AlertStateConfirmed:
		return "confirmed"
	case AlertStateFalsePositive:
		return "false_positive"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Alert is one detection event as known to the gateway.
type Alert struct {
	ID              int64      `json:"id"`
	CameraID        int64      `json:"camera_id"`
	Message         string     `json:"message"`
	OccurredAt      time.Time  `json:"occurred_at"`
	ConfidenceScore float64    `json:"confidence_score"`
	State           AlertState `json:"state"`
	ClipReference   *string    `json:"clip_reference,omitempty"`
	// Description is nil until someone annotates the alert; "" is a valid annotation.
	Description *string `json:"description,omitempty"`
}

func (a Alert) Pending() bool {
	return a.State == AlertStatePending
}

// Clone returns a copy that shares no pointers with a.
func (a Alert) Clone() Alert {
	c := a
	if a.ClipReference != nil {
		v := *a.ClipReference
		c.ClipReference = &v
	}
	if a.Description != nil {
		v := *a.Description
		c.Description = &v
	}
	return c
}

// AlertPatch carries the fields present in an incoming payload. Nil fields are
// left untouched by a merge.
type AlertPatch struct {
	ID              int64
	CameraID        *int64
	Message         *string
	OccurredAt      *time.Time
	ConfidenceScore *float64
	State           *AlertState
	ClipReference   *string
	Description     *string
}

// Complete reports whether the patch carries enough to create a new alert.
func (p AlertPatch) Complete() bool {
	return p.CameraID != nil && p.Message != nil && p.OccurredAt != nil && p.State != nil
}

// PatchFromAlert converts a full record into a patch that sets every field.
func PatchFromAlert(a Alert) AlertPatch {
	a = a.Clone()
	return AlertPatch{
		ID:              a.ID,
		CameraID:        &a.CameraID,
		Message:         &a.Message,
		OccurredAt:      &a.OccurredAt,
		ConfidenceScore: &a.ConfidenceScore,
		State:           &a.State,
		ClipReference:   a.ClipReference,
		Description:     a.Description,
	}
}

// StatePatch is the local equivalent of a confirmed state transition.
func StatePatch(id int64, state AlertState) AlertPatch {
	return AlertPatch{ID: id, State: &state}
}

// DescriptionPatch is the local equivalent of a confirmed description edit.
func DescriptionPatch(id int64, description string) AlertPatch {
	return AlertPatch{ID: id, Description: &description}
}
