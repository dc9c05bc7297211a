package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/pkg/dto"
)

const (
	EventAlertUpserted = "alert_upserted"
	EventAlertRemoved  = "alert_removed"
	EventAlertsReset   = "alerts_reset"

	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client is one connected browser. Its view holds the optional camera filter.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	view *alerts.View
}

// Hub fans store changes out to browser clients.
type Hub struct {
	store *alerts.Store

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(store *alerts.Store) *Hub {
	return &Hub{
		store:      store,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run follows the store and serves clients until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	changes, cancel := h.store.Subscribe()
	defer cancel()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "camera_id", client.view.Camera())

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				slog.Debug("ws client disconnected")
			}

		case change := <-changes:
			h.fanOut(change)
		}
	}
}

func (h *Hub) fanOut(change alerts.Change) {
	var slow []*Client
	for client := range h.clients {
		msg, ok := encode(change, client.view)
		if !ok {
			continue
		}
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		slog.Warn("dropping slow ws client", "camera_id", client.view.Camera())
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	observability.WSConnections.Dec()
}

// encode renders change for one client. Resets reach every client; other
// changes only clients whose filter matches the alert's camera.
func encode(change alerts.Change, view *alerts.View) ([]byte, bool) {
	evt := dto.WSEvent{UnseenCount: view.UnseenCountIn(change.Alerts)}
	switch change.Kind {
	case alerts.ChangeReset:
		evt.Type = EventAlertsReset
	case alerts.ChangeUpserted, alerts.ChangeRemoved:
		if !view.Matches(change.Alert) {
			return nil, false
		}
		evt.Type = EventAlertUpserted
		if change.Kind == alerts.ChangeRemoved {
			evt.Type = EventAlertRemoved
		}
		resp := dto.AlertToResponse(change.Alert)
		evt.CameraID = change.Alert.CameraID
		evt.Alert = &resp
	default:
		return nil, false
	}

	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return nil, false
	}
	return data, true
}

// HandleWS handles WebSocket upgrade requests. ?camera_id= narrows the events
// and unseen counts to one camera.
func (h *Hub) HandleWS(c *gin.Context) {
	view := alerts.NewView(h.store)
	if raw := c.Query("camera_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera_id"})
			return
		}
		view.SelectCamera(&id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		view: view,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// Incoming messages are ignored; the loop detects disconnection.
	}
}
