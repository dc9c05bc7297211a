package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/sentinel/internal/backend"
	"github.com/your-org/sentinel/internal/reports"
)

type ReportHandler struct {
	service *reports.Service
}

func NewReportHandler(service *reports.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	q, ok := reportQuery(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), q)
	if err != nil {
		reportFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) PDF(c *gin.Context) {
	q, ok := reportQuery(c)
	if !ok {
		return
	}
	data, contentType, err := h.service.PDF(c.Request.Context(), q)
	if err != nil {
		reportFailed(c, err)
		return
	}
	name := "alerts-" + q.From.Format("20060102") + "-" + q.To.Format("20060102") + ".pdf"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// reportQuery reads from and to (RFC 3339 or YYYY-MM-DD) and an optional
// camera_id. Without from/to the last 7 days are reported.
func reportQuery(c *gin.Context) (backend.ReportQuery, bool) {
	now := time.Now().UTC()
	q := backend.ReportQuery{From: now.AddDate(0, 0, -7), To: now}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.name})
			return q, false
		}
		*p.dst = t
	}

	cam, ok := cameraFilter(c)
	if !ok {
		return q, false
	}
	q.CameraID = cam
	return q, true
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, errors.New("unrecognized time format")
}

func reportFailed(c *gin.Context, err error) {
	if errors.Is(err, reports.ErrInvalidRange) || errors.Is(err, reports.ErrRangeTooLarge) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
