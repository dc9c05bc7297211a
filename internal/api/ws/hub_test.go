package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sentinel/internal/alerts"
	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/pkg/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func alert(id, cam int64) models.Alert {
	return models.Alert{
		ID:              id,
		CameraID:        cam,
		Message:         "motion",
		OccurredAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ConfidenceScore: 0.7,
		State:           models.AlertStatePending,
	}
}

func startHub(t *testing.T, store *alerts.Store) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", hub.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) dto.WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt dto.WSEvent
	require.NoError(t, json.Unmarshal(raw, &evt))
	return evt
}

func TestHub_FollowsStoreWithCameraFilter(t *testing.T) {
	store := alerts.NewStore()
	store.Replace([]models.Alert{alert(2, 20), alert(1, 10)}, nil)
	srv, _ := startHub(t, store)

	base := testutil.ToFloat64(observability.WSConnections)
	all := dial(t, srv, "")
	gate := dial(t, srv, "?camera_id=10")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WSConnections) == base+2
	}, 2*time.Second, 5*time.Millisecond)

	_, err := store.Ingest(models.PatchFromAlert(alert(3, 20)))
	require.NoError(t, err)
	_, err = store.Upsert(models.StatePatch(1, models.AlertStateConfirmed))
	require.NoError(t, err)
	store.Remove(2)
	store.Replace(nil, nil)

	want := []struct {
		typ    string
		id     int64
		unseen int
	}{
		{EventAlertUpserted, 3, 3},
		{EventAlertUpserted, 1, 2},
		{EventAlertRemoved, 2, 1},
		{EventAlertsReset, 0, 0},
	}
	for _, w := range want {
		evt := next(t, all)
		assert.Equal(t, w.typ, evt.Type)
		assert.Equal(t, w.unseen, evt.UnseenCount)
		if w.id != 0 {
			require.NotNil(t, evt.Alert)
			assert.Equal(t, w.id, evt.Alert.ID)
		} else {
			assert.Nil(t, evt.Alert)
		}
	}

	evt := next(t, gate)
	assert.Equal(t, EventAlertUpserted, evt.Type)
	assert.Equal(t, int64(10), evt.CameraID)
	assert.Equal(t, "confirmed", evt.Alert.StateName)
	assert.Equal(t, 0, evt.UnseenCount)

	evt = next(t, gate)
	assert.Equal(t, EventAlertsReset, evt.Type)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	store := alerts.NewStore()
	srv, cancel := startHub(t, store)

	base := testutil.ToFloat64(observability.WSConnections)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WSConnections) == base+1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHandleWS_InvalidCameraFilter(t *testing.T) {
	hub := NewHub(alerts.NewStore())
	r := gin.New()
	r.GET("/ws", hub.HandleWS)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?camera_id=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
