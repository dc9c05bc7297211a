package models

type StreamKind string

const (
	StreamKindExternal StreamKind = "external"
	StreamKindInternal StreamKind = "internal"
)

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type StreamRef struct {
	Kind StreamKind `json:"kind"`
	URL  string     `json:"url"`
}

type Camera struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Position Position  `json:"position"`
	Active   bool      `json:"active"`
	Stream   StreamRef `json:"stream"`
	// AlertCount is advisory; the backend value wins on the next reload.
	AlertCount int `json:"alert_count"`
}
