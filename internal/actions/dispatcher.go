// Package actions sends operator decisions to the backend and applies them
// locally once the backend has accepted them.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/observability"
)

var (
	ErrUnknownAlert      = errors.New("unknown alert")
	ErrInvalidTransition = errors.New("state must be confirmed or false_positive")
)

// Backend is the part of the backend client the dispatcher needs.
type Backend interface {
	MarkSeen(ctx context.Context, id int64, state models.AlertState) error
	EditDescription(ctx context.Context, id int64, description string) error
	DeleteAlert(ctx context.Context, id int64) error
}

// ActionError is returned when the backend did not confirm an action. The
// local store is unchanged.
type ActionError struct {
	Op  string
	ID  int64
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s alert %d: %v", e.Op, e.ID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

type Dispatcher struct {
	backend Backend
	store   *alerts.Store
}

func NewDispatcher(backend Backend, store *alerts.Store) *Dispatcher {
	return &Dispatcher{backend: backend, store: store}
}

// MarkSeen records the operator's review decision for id.
func (d *Dispatcher) MarkSeen(ctx context.Context, id int64, state models.AlertState) (models.Alert, error) {
	if state != models.AlertStateConfirmed && state != models.AlertStateFalsePositive {
		return models.Alert{}, ErrInvalidTransition
	}
	return d.run(ctx, "mark_seen", id, func(ctx context.Context) error {
		return d.backend.MarkSeen(ctx, id, state)
	}, models.StatePatch(id, state))
}

func (d *Dispatcher) Confirm(ctx context.Context, id int64) (models.Alert, error) {
	return d.MarkSeen(ctx, id, models.AlertStateConfirmed)
}

func (d *Dispatcher) MarkFalsePositive(ctx context.Context, id int64) (models.Alert, error) {
	return d.MarkSeen(ctx, id, models.AlertStateFalsePositive)
}

// EditDescription replaces the alert's free-text annotation. An empty text is
// a valid annotation.
func (d *Dispatcher) EditDescription(ctx context.Context, id int64, description string) (models.Alert, error) {
	return d.run(ctx, "edit_description", id, func(ctx context.Context) error {
		return d.backend.EditDescription(ctx, id, description)
	}, models.DescriptionPatch(id, description))
}

func (d *Dispatcher) Delete(ctx context.Context, id int64) error {
	if _, ok := d.store.Get(id); !ok {
		return ErrUnknownAlert
	}
	if err := d.backend.DeleteAlert(ctx, id); err != nil {
		return d.fail("delete", id, err)
	}
	d.store.Remove(id)
	observability.Actions.WithLabelValues("delete", "ok").Inc()
	slog.Info("alert deleted", "alert_id", id)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, op string, id int64, call func(context.Context) error, patch models.AlertPatch) (models.Alert, error) {
	if _, ok := d.store.Get(id); !ok {
		return models.Alert{}, ErrUnknownAlert
	}
	if err := call(ctx); err != nil {
		return models.Alert{}, d.fail(op, id, err)
	}

	if _, err := d.store.Upsert(patch); err != nil {
		observability.AlertMerges.WithLabelValues("action", "rejected").Inc()
		if errors.Is(err, alerts.ErrIncomplete) {
			// removed by a push event while the call was in flight
			return models.Alert{}, ErrUnknownAlert
		}
		return models.Alert{}, fmt.Errorf("apply %s: %w", op, err)
	}
	observability.AlertMerges.WithLabelValues("action", "ok").Inc()
	observability.Actions.WithLabelValues(op, "ok").Inc()

	updated, ok := d.store.Get(id)
	if !ok {
		return models.Alert{}, ErrUnknownAlert
	}
	slog.Info("alert action applied", "action", op, "alert_id", id)
	return updated, nil
}

func (d *Dispatcher) fail(op string, id int64, err error) error {
	observability.Actions.WithLabelValues(op, "error").Inc()
	slog.Warn("alert action failed", "action", op, "alert_id", id, "error", err)
	return &ActionError{Op: op, ID: id, Err: err}
}
