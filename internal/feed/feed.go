// Package feed loads the alert collection from the backend and keeps it in
// sync with push events.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/internal/push"
	"github.com/your-org/sentinel/pkg/dto"
)

var (
	ErrMissingID          = errors.New("payload has no id")
	ErrMissingDescription = errors.New("payload has no description")
)

// Source is the backend read side used for hydration.
type Source interface {
	ListAlerts(ctx context.Context) ([]dto.AlertPayload, error)
	ListUnseen(ctx context.Context) ([]dto.AlertPayload, error)
	ListCameras(ctx context.Context) ([]models.Camera, error)
}

// HydrationReport compares the backend's unseen list with the unseen set
// derived from its full list alone, before the unseen records are merged in.
type HydrationReport struct {
	Alerts  int
	Unseen  int
	Cameras int
	// Missing are ids the backend lists as unseen that its full list does not
	// hold as PENDING.
	Missing []int64
	// Extra are PENDING ids absent from the backend's unseen list.
	Extra []int64
}

func (r HydrationReport) Diverged() bool {
	return len(r.Missing) > 0 || len(r.Extra) > 0
}

type Feed struct {
	source Source
	store  *alerts.Store

	hydrated atomic.Bool

	mu    sync.Mutex
	subs  []*push.Subscription
	hooks []func(HydrationReport)
}

func New(source Source, store *alerts.Store) *Feed {
	return &Feed{source: source, store: store}
}

// Hydrated reports whether at least one hydration has succeeded.
func (f *Feed) Hydrated() bool {
	return f.hydrated.Load()
}

// OnHydrate registers fn to run after every successful hydration.
func (f *Feed) OnHydrate(fn func(HydrationReport)) {
	f.mu.Lock()
	f.hooks = append(f.hooks, fn)
	f.mu.Unlock()
}

// Hydrate replaces the store contents with a fresh copy from the backend.
// On error the store is left as it was.
func (f *Feed) Hydrate(ctx context.Context) (HydrationReport, error) {
	var all, unseen []dto.AlertPayload
	var cameras []models.Camera

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = f.source.ListAlerts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unseen, err = f.source.ListUnseen(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cameras, err = f.source.ListCameras(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return HydrationReport{}, fmt.Errorf("hydrate: %w", err)
	}

	base := seed(nil, all)
	report := compare(base, unseen)
	list := seed(base, unseen)
	report.Alerts = len(list)
	report.Unseen = alerts.UnseenCount(list)
	report.Cameras = len(cameras)

	observability.HydrationDivergence.Set(float64(len(report.Missing) + len(report.Extra)))
	if report.Diverged() {
		slog.Warn("backend unseen list disagrees with alert states",
			"missing", report.Missing, "extra", report.Extra)
	}

	f.store.Replace(list, cameras)
	f.hydrated.Store(true)
	slog.Info("alerts hydrated", "alerts", report.Alerts, "unseen", report.Unseen, "cameras", report.Cameras)

	f.mu.Lock()
	hooks := append([]func(HydrationReport){}, f.hooks...)
	f.mu.Unlock()
	for _, fn := range hooks {
		fn(report)
	}
	return report, nil
}

// seed merges payloads oldest first, so a most-recent-first input keeps its
// order in the result.
func seed(list []models.Alert, payloads []dto.AlertPayload) []models.Alert {
	for i := len(payloads) - 1; i >= 0; i-- {
		next, _, err := alerts.Merge(list, payloads[i].Patch())
		if err != nil {
			observability.AlertMerges.WithLabelValues("hydrate", "rejected").Inc()
			slog.Warn("skipping backend alert", "index", i, "error", err)
			continue
		}
		observability.AlertMerges.WithLabelValues("hydrate", "ok").Inc()
		list = next
	}
	return list
}

func compare(list []models.Alert, unseen []dto.AlertPayload) HydrationReport {
	listed := make(map[int64]bool, len(unseen))
	for _, p := range unseen {
		if p.ID != nil && *p.ID > 0 {
			listed[*p.ID] = true
		}
	}
	derived := make(map[int64]bool)
	for _, a := range alerts.Unseen(list) {
		derived[a.ID] = true
	}

	var r HydrationReport
	for id := range listed {
		if !derived[id] {
			r.Missing = append(r.Missing, id)
		}
	}
	for id := range derived {
		if !listed[id] {
			r.Extra = append(r.Extra, id)
		}
	}
	sort.Slice(r.Missing, func(i, j int) bool { return r.Missing[i] < r.Missing[j] })
	sort.Slice(r.Extra, func(i, j int) bool { return r.Extra[i] < r.Extra[j] })
	return r
}

// Attach routes push topics into the store and re-hydrates every time the
// push connection is established, so alerts missed while disconnected appear.
func (f *Feed) Attach(m *push.Manager) error {
	newAlert, err := m.Subscribe(push.TopicNewAlert, f.handleNewAlert)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", push.TopicNewAlert, err)
	}
	described, err := m.Subscribe(push.TopicDescriptionUpdated, f.handleDescriptionUpdated)
	if err != nil {
		m.Unsubscribe(newAlert)
		return fmt.Errorf("subscribe %s: %w", push.TopicDescriptionUpdated, err)
	}

	f.mu.Lock()
	f.subs = append(f.subs, newAlert, described)
	f.mu.Unlock()

	m.OnConnect(func(ctx context.Context) {
		if _, err := f.Hydrate(ctx); err != nil {
			slog.Error("re-hydration failed", "error", err)
		}
	})
	return nil
}

// Detach removes the push subscriptions made by Attach.
func (f *Feed) Detach(m *push.Manager) {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, s := range subs {
		m.Unsubscribe(s)
	}
}

func (f *Feed) handleNewAlert(_ context.Context, data json.RawMessage) error {
	var payload dto.AlertPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return reject(fmt.Errorf("decode new alert: %w", err))
	}
	if _, err := f.store.Ingest(payload.Patch()); err != nil {
		return reject(fmt.Errorf("merge new alert: %w", err))
	}
	observability.AlertMerges.WithLabelValues("push", "ok").Inc()
	return nil
}

func (f *Feed) handleDescriptionUpdated(_ context.Context, data json.RawMessage) error {
	var payload dto.DescriptionUpdate
	if err := json.Unmarshal(data, &payload); err != nil {
		return reject(fmt.Errorf("decode description update: %w", err))
	}
	if payload.ID == nil || *payload.ID <= 0 {
		return reject(ErrMissingID)
	}
	if payload.Description == nil {
		return reject(ErrMissingDescription)
	}
	if _, err := f.store.Upsert(models.DescriptionPatch(*payload.ID, *payload.Description)); err != nil {
		return reject(fmt.Errorf("merge description update %d: %w", *payload.ID, err))
	}
	observability.AlertMerges.WithLabelValues("push", "ok").Inc()
	return nil
}

func reject(err error) error {
	observability.AlertMerges.WithLabelValues("push", "rejected").Inc()
	return err
}
