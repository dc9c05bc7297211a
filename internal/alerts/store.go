package alerts

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/observability"
)

const subscriberBuffer = 64

type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeRemoved  ChangeKind = "removed"
	ChangeReset    ChangeKind = "reset"
)

// Change describes one mutation of the store.
type Change struct {
	Kind     ChangeKind
	Alert    models.Alert // zero for ChangeReset
	Inserted bool
	// Alerts is the collection right after the change. It is shared and must
	// not be modified.
	Alerts      []models.Alert
	UnseenCount int
}

type subscriber struct {
	ch   chan Change
	done chan struct{}
	// lagging is set once a change was dropped; guarded by Store.subsMu.
	lagging bool
}

// Store is the single canonical alert collection of the process. Every
// mutation replaces the underlying slice, so slices handed out by Snapshot and
// Change stay valid and unchanged.
type Store struct {
	mu      sync.RWMutex
	list    []models.Alert
	cameras map[int64]models.Camera

	subsMu sync.Mutex
	subs   []*subscriber
}

func NewStore() *Store {
	return &Store{
		list:    []models.Alert{},
		cameras: map[int64]models.Camera{},
	}
}

// Snapshot returns the collection, most recent first.
func (s *Store) Snapshot() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

func (s *Store) Get(id int64) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Find(s.list, id)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

func (s *Store) Unseen() []models.Alert {
	return Unseen(s.Snapshot())
}

func (s *Store) UnseenCount() int {
	return UnseenCount(s.Snapshot())
}

func (s *Store) ByCamera(cameraID *int64) []models.Alert {
	return ByCamera(s.Snapshot(), cameraID)
}

func (s *Store) Counts() Counts {
	return CountByState(s.Snapshot())
}

// Upsert merges p into the collection.
func (s *Store) Upsert(p models.AlertPatch) (bool, error) {
	return s.merge(p, false)
}

// Ingest merges a pushed alert. When the id is new and its camera is loaded,
// the camera's advisory alert count is incremented in the same step.
func (s *Store) Ingest(p models.AlertPatch) (bool, error) {
	return s.merge(p, true)
}

func (s *Store) merge(p models.AlertPatch, countCamera bool) (bool, error) {
	s.mu.Lock()
	next, inserted, err := Merge(s.list, p)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.list = next
	alert, _ := Find(next, p.ID)
	if inserted && countCamera {
		if cam, ok := s.cameras[alert.CameraID]; ok {
			cam.AlertCount++
			s.cameras[alert.CameraID] = cam
		} else {
			slog.Debug("alert for camera outside loaded set", "alert_id", alert.ID, "camera_id", alert.CameraID)
		}
	}
	s.commitLocked(s.changeLocked(ChangeUpserted, alert, inserted))
	return inserted, nil
}

// Remove drops id from the collection. It reports whether the alert existed.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	alert, ok := Find(s.list, id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.list, _ = Remove(s.list, id)
	s.commitLocked(s.changeLocked(ChangeRemoved, alert, false))
	return true
}

// Replace swaps in a freshly hydrated collection and camera set.
func (s *Store) Replace(list []models.Alert, cameras []models.Camera) {
	cams := make(map[int64]models.Camera, len(cameras))
	for _, c := range cameras {
		cams[c.ID] = c
	}
	if list == nil {
		list = []models.Alert{}
	}

	s.mu.Lock()
	s.list = list
	s.cameras = cams
	s.commitLocked(s.changeLocked(ChangeReset, models.Alert{}, false))
}

// Cameras returns the loaded camera set ordered by id.
func (s *Store) Cameras() []models.Camera {
	s.mu.RLock()
	out := make([]models.Camera, 0, len(s.cameras))
	for _, c := range s.cameras {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Camera(id int64) (models.Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cameras[id]
	return c, ok
}

// Subscribe returns a channel receiving every subsequent change. The cancel
// func removes the subscription; the channel is not closed.
func (s *Store) Subscribe() (<-chan Change, func()) {
	sub := &subscriber{
		ch:   make(chan Change, subscriberBuffer),
		done: make(chan struct{}),
	}

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(sub.done)
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, other := range s.subs {
				if other == sub {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					break
				}
			}
		})
	}
	return sub.ch, cancel
}

func (s *Store) changeLocked(kind ChangeKind, alert models.Alert, inserted bool) Change {
	unseen := UnseenCount(s.list)
	observability.UnseenAlerts.Set(float64(unseen))
	return Change{
		Kind:        kind,
		Alert:       alert,
		Inserted:    inserted,
		Alerts:      s.list,
		UnseenCount: unseen,
	}
}

// commitLocked is called with s.mu held and releases it. subsMu is taken
// before s.mu is released so subscribers see changes in mutation order. A
// subscriber with a full buffer misses the change and is marked lagging; its
// next delivered change is a ChangeReset carrying the current collection.
func (s *Store) commitLocked(change Change) {
	s.subsMu.Lock()
	s.mu.Unlock()
	defer s.subsMu.Unlock()

	resync := Change{Kind: ChangeReset, Alerts: change.Alerts, UnseenCount: change.UnseenCount}
	for _, sub := range s.subs {
		select {
		case <-sub.done:
			continue
		default:
		}
		next := change
		if sub.lagging {
			next = resync
		}
		select {
		case sub.ch <- next:
			if sub.lagging {
				sub.lagging = false
				slog.Info("slow subscriber resynced")
			}
		default:
			if !sub.lagging {
				slog.Warn("alert change dropped for slow subscriber", "kind", change.Kind, "alert_id", change.Alert.ID)
			}
			sub.lagging = true
		}
	}
}
