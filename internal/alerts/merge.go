// Package alerts holds the canonical alert collection and the projections
// derived from it.
package alerts

import (
	"errors"

	"github.com/your-org/sentinel/internal/models"
)

var (
	ErrMissingID    = errors.New("alert id missing")
	ErrInvalidState = errors.New("alert state out of range")
	// ErrIncomplete is returned when a partial payload names an alert that is
	// not in the collection; there is nothing to merge it into.
	ErrIncomplete = errors.New("partial payload for unknown alert")
)

// Merge applies p to list and returns the resulting collection. list is never
// modified. An existing alert is updated in place with the fields present in
// p; an unknown id is prepended when p is complete.
func Merge(list []models.Alert, p models.AlertPatch) ([]models.Alert, bool, error) {
	if p.ID <= 0 {
		return list, false, ErrMissingID
	}
	if p.State != nil && !p.State.Valid() {
		return list, false, ErrInvalidState
	}

	idx := indexOf(list, p.ID)
	if idx >= 0 {
		out := make([]models.Alert, len(list))
		copy(out, list)
		out[idx] = apply(list[idx], p)
		return out, false, nil
	}

	if !p.Complete() {
		return list, false, ErrIncomplete
	}

	out := make([]models.Alert, 0, len(list)+1)
	out = append(out, apply(models.Alert{ID: p.ID, CameraID: *p.CameraID}, p))
	out = append(out, list...)
	return out, true, nil
}

// Remove returns list without the alert id.
func Remove(list []models.Alert, id int64) ([]models.Alert, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return list, false
	}
	out := make([]models.Alert, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, true
}

// Find returns the alert with id, if present.
func Find(list []models.Alert, id int64) (models.Alert, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return models.Alert{}, false
	}
	return list[idx], true
}

// Unseen is the PENDING subset, in collection order.
func Unseen(list []models.Alert) []models.Alert {
	out := make([]models.Alert, 0)
	for _, a := range list {
		if a.Pending() {
			out = append(out, a)
		}
	}
	return out
}

// UnseenCount is len(Unseen(list)) without the allocation.
func UnseenCount(list []models.Alert) int {
	n := 0
	for _, a := range list {
		if a.Pending() {
			n++
		}
	}
	return n
}

// ByCamera filters list to one camera. A nil camera selects everything.
func ByCamera(list []models.Alert, cameraID *int64) []models.Alert {
	out := make([]models.Alert, 0, len(list))
	for _, a := range list {
		if cameraID == nil || a.CameraID == *cameraID {
			out = append(out, a)
		}
	}
	return out
}

type Counts struct {
	Pending       int
	Confirmed     int
	FalsePositive int
}

func (c Counts) Total() int {
	return c.Pending + c.Confirmed + c.FalsePositive
}

func CountByState(list []models.Alert) Counts {
	var c Counts
	for _, a := range list {
		switch a.State {
		case models.AlertStatePending:
			c.Pending++
		case models.AlertStateConfirmed:
			c.Confirmed++
		case models.AlertStateFalsePositive:
			c.FalsePositive++
		}
	}
	return c
}

func indexOf(list []models.Alert, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// apply copies the present fields of p onto a. CameraID is only taken from
// the patch for a new alert (set by the caller); it never changes afterwards.
func apply(a models.Alert, p models.AlertPatch) models.Alert {
	a = a.Clone()
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.OccurredAt != nil {
		a.OccurredAt = *p.OccurredAt
	}
	if p.ConfidenceScore != nil {
		a.ConfidenceScore = *p.ConfidenceScore
	}
	if p.State != nil {
		a.State = *p.State
	}
	if p.ClipReference != nil {
		v := *p.ClipReference
		a.ClipReference = &v
	}
	if p.Description != nil {
		v := *p.Description
		a.Description = &v
	}
	return a
}
