package alerts

import (
	"sync"

	"github.com/your-org/sentinel/internal/models"
)

// View is one consumer's lens over the store: an optional camera filter and
// an optional selected alert. Nothing is cached; every read derives from the
// store's current collection.
type View struct {
	store *Store

	mu       sync.RWMutex
	cameraID *int64
	selected *int64
}

func NewView(store *Store) *View {
	return &View{store: store}
}

func (v *View) SelectCamera(cameraID *int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cameraID = copyID(cameraID)
}

func (v *View) SelectAlert(id *int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = copyID(id)
}

func (v *View) Camera() *int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return copyID(v.cameraID)
}

// Matches reports whether a belongs to this view's camera filter.
func (v *View) Matches(a models.Alert) bool {
	cam := v.Camera()
	return cam == nil || a.CameraID == *cam
}

func (v *View) Alerts() []models.Alert {
	return ByCamera(v.store.Snapshot(), v.Camera())
}

func (v *View) Unseen() []models.Alert {
	return Unseen(v.Alerts())
}

func (v *View) UnseenCount() int {
	return UnseenCount(v.Alerts())
}

// UnseenCountIn derives the filtered unseen count from a given collection,
// e.g. Change.Alerts.
func (v *View) UnseenCountIn(list []models.Alert) int {
	return UnseenCount(ByCamera(list, v.Camera()))
}

// Selected returns the selected alert as it currently is in the store. A
// selection whose alert was removed reads as not found.
func (v *View) Selected() (models.Alert, bool) {
	v.mu.RLock()
	id := copyID(v.selected)
	v.mu.RUnlock()
	if id == nil {
		return models.Alert{}, false
	}
	return v.store.Get(*id)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
