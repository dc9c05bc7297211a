package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/sentinel/internal/auth"
	"github.com/your-org/sentinel/internal/config"
	"github.com/your-org/sentinel/internal/models"
)

const baseURL = "http://backend.test/api"

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("login refused") }

func setupClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	c := New(config.BackendConfig{BaseURL: baseURL + "/", Timeout: time.Second},
		WithHTTPClient(&http.Client{Transport: mt}))
	c.SetTokenSource(staticToken("tok-1"))
	return c, mt
}

func TestClient_ListAlerts(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodGet, baseURL+"/alerts", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"id": 2, "cameraId": 10, "message": "person", "occurredAt": "2026-03-01T12:00:00Z", "confidenceScore": 0.9, "state": 0},
			{"id": 1, "cameraId": 20, "message": "car", "occurredAt": "2026-03-01T11:00:00Z", "confidenceScore": 0.5, "state": 1, "clipReference": "clips/1.mp4", "description": "ok"}
		]`), nil
	})

	alerts, err := c.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	p := alerts[1].Patch()
	assert.Equal(t, int64(1), p.ID)
	require.NotNil(t, p.State)
	assert.Equal(t, models.AlertStateConfirmed, *p.State)
	require.NotNil(t, p.ClipReference)
	assert.Equal(t, "clips/1.mp4", *p.ClipReference)
	assert.True(t, p.Complete())
}

func TestClient_ListCameras(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodGet, baseURL+"/cameras",
		httpmock.NewStringResponder(http.StatusOK, `[{"id": 10, "name": "gate", "lat": 1.5, "lng": 2.5, "active": true, "external": true, "streamUrl": "rtsp://cam/10", "alertCount": 3}]`))

	cams, err := c.ListCameras(context.Background())
	require.NoError(t, err)
	require.Len(t, cams, 1)
	assert.Equal(t, "gate", cams[0].Name)
	assert.Equal(t, models.StreamKindExternal, cams[0].Stream.Kind)
	assert.Equal(t, 3, cams[0].AlertCount)
	assert.InDelta(t, 1.5, cams[0].Position.Lat, 0.0001)
}

func TestClient_MarkSeenSendsState(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/mark-seen/7", func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		var body map[string]int
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, map[string]int{"state": 1}, body)
		return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
	})

	require.NoError(t, c.MarkSeen(context.Background(), 7, models.AlertStateConfirmed))
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestClient_EditDescriptionAndDelete(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodPut, baseURL+"/edit-description/5", func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"description": "seen a car"}`, string(raw))
		return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
	})
	mt.RegisterResponder(http.MethodDelete, baseURL+"/alert/5", httpmock.NewStringResponder(http.StatusOK, ""))

	require.NoError(t, c.EditDescription(context.Background(), 5, "seen a car"))
	require.NoError(t, c.DeleteAlert(context.Background(), 5))
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error field", http.StatusConflict, `{"error": "already reviewed"}`, "already reviewed"},
		{"json message field", http.StatusNotFound, `{"message": "no such alert"}`, "no such alert"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", "no response body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := setupClient(t)
			mt.RegisterResponder(http.MethodPost, baseURL+"/mark-seen/7", httpmock.NewStringResponder(tt.status, tt.body))

			err := c.MarkSeen(context.Background(), 7, models.AlertStateConfirmed)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, "/mark-seen/7", apiErr.Path)
		})
	}
}

func TestClient_NoAutomaticRetry(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodDelete, baseURL+"/alert/9", httpmock.NewErrorResponder(errors.New("connection reset")))

	err := c.DeleteAlert(context.Background(), 9)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestClient_TokenFailureSkipsRequest(t *testing.T) {
	c, mt := setupClient(t)
	c.SetTokenSource(failingToken{})

	_, err := c.ListAlerts(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "login refused")
	assert.Equal(t, 0, mt.GetTotalCallCount())
}

func TestClient_Login(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/login", func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.Header.Get("Authorization"))
		raw, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"username": "op", "password": "pw"}`, string(raw))
		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"token": "jwt-abc"})
	})

	tok, err := c.Login(context.Background(), "op", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)
}

func TestClient_LoginRejected(t *testing.T) {
	c, mt := setupClient(t)
	mt.RegisterResponder(http.MethodPost, baseURL+"/login",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error": "bad credentials"}`))

	_, err := c.Login(context.Background(), "op", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_Reports(t *testing.T) {
	c, mt := setupClient(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)
	cam := int64(10)

	mt.RegisterResponder(http.MethodGet, baseURL+"/reports/summary", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "2026-01-01T00:00:00Z", q.Get("from"))
		assert.Equal(t, "2026-01-04T00:00:00Z", q.Get("to"))
		assert.Equal(t, "10", q.Get("camera_id"))
		return httpmock.NewStringResponse(http.StatusOK, `{"from": "2026-01-01", "to": "2026-01-04", "totals": {"pending": 3, "confirmed": 2, "falsePositive": 1}, "ranking": [{"cameraId": 10, "name": "gate", "count": 6}]}`), nil
	})
	mt.RegisterResponder(http.MethodGet, baseURL+"/reports/pdf", func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, []byte("%PDF-1.7"))
		resp.Header.Set("Content-Type", "application/pdf")
		return resp, nil
	})

	summary, err := c.ReportSummary(context.Background(), ReportQuery{From: from, To: to, CameraID: &cam})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Totals.Pending)
	require.Len(t, summary.Ranking, 1)
	assert.Equal(t, int64(10), summary.Ranking[0].CameraID)

	pdf, ct, err := c.ReportPDF(context.Background(), ReportQuery{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
}

func TestClient_UnauthorizedRenewsSession(t *testing.T) {
	c, mt := setupClient(t)
	logins := 0
	mt.RegisterResponder(http.MethodPost, baseURL+"/login", func(*http.Request) (*http.Response, error) {
		logins++
		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"token": "opaque"})
	})
	mt.RegisterResponder(http.MethodGet, baseURL+"/alerts",
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(http.StatusUnauthorized, `{"error": "token revoked"}`),
			httpmock.NewStringResponse(http.StatusOK, `[]`),
		}))
	c.SetTokenSource(auth.NewSession(c.Login, "op", "pw", time.Minute))

	_, err := c.ListAlerts(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.ListAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, logins)
}

func TestClient_ForbiddenKeepsSession(t *testing.T) {
	c, mt := setupClient(t)
	logins := 0
	mt.RegisterResponder(http.MethodPost, baseURL+"/login", func(*http.Request) (*http.Response, error) {
		logins++
		return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"token": "opaque"})
	})
	mt.RegisterResponder(http.MethodDelete, baseURL+"/alert/4",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error": "not allowed"}`))
	c.SetTokenSource(auth.NewSession(c.Login, "op", "pw", time.Minute))

	require.Error(t, c.DeleteAlert(context.Background(), 4))
	require.Error(t, c.DeleteAlert(context.Background(), 4))
	assert.Equal(t, 1, logins)
}
