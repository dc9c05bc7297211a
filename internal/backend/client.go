// Package backend is the REST client for the surveillance backend, which is
// the source of truth for alerts, cameras and reports.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/your-org/sentinel/internal/config"
	"github.com/your-org/sentinel/internal/models"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/pkg/dto"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that can drop a rejected token.
type invalidator interface {
	Invalidate()
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

type Client struct {
	http   *resty.Client
	tokens TokenSource
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient makes the client send requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

func New(cfg config.BackendConfig, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	return &Client{http: rc}
}

// SetTokenSource attaches the session used for authenticated calls.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Login exchanges credentials for a backend token. It never uses the token
// source.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out dto.LoginResponse
	req := c.http.R().SetContext(ctx).
		SetBody(dto.LoginRequest{Username: username, Password: password}).
		SetResult(&out).
		ForceContentType("application/json")
	if err := c.execute(req, http.MethodPost, "/login"); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: empty token in response")
	}
	return out.Token, nil
}

func (c *Client) ListAlerts(ctx context.Context) ([]dto.AlertPayload, error) {
	var out []dto.AlertPayload
	if err := c.call(ctx, http.MethodGet, "/alerts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnseen returns the backend's own PENDING subset.
func (c *Client) ListUnseen(ctx context.Context) ([]dto.AlertPayload, error) {
	var out []dto.AlertPayload
	if err := c.call(ctx, http.MethodGet, "/alerts/unseen", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCameras(ctx context.Context) ([]models.Camera, error) {
	var payload []dto.CameraPayload
	if err := c.call(ctx, http.MethodGet, "/cameras", nil, &payload); err != nil {
		return nil, err
	}
	cams := make([]models.Camera, 0, len(payload))
	for _, p := range payload {
		cams = append(cams, p.Model())
	}
	return cams, nil
}

func (c *Client) MarkSeen(ctx context.Context, id int64, state models.AlertState) error {
	return c.call(ctx, http.MethodPost, "/mark-seen/"+strconv.FormatInt(id, 10),
		dto.MarkSeenBody{State: int(state)}, nil)
}

func (c *Client) EditDescription(ctx context.Context, id int64, description string) error {
	return c.call(ctx, http.MethodPut, "/edit-description/"+strconv.FormatInt(id, 10),
		dto.EditDescriptionBody{Description: description}, nil)
}

func (c *Client) DeleteAlert(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/alert/"+strconv.FormatInt(id, 10), nil, nil)
}

// ReportQuery selects the time range (and optionally one camera) of a report.
type ReportQuery struct {
	From     time.Time
	To       time.Time
	CameraID *int64
}

func (q ReportQuery) params() map[string]string {
	p := map[string]string{
		"from": q.From.UTC().Format(time.RFC3339),
		"to":   q.To.UTC().Format(time.RFC3339),
	}
	if q.CameraID != nil {
		p["camera_id"] = strconv.FormatInt(*q.CameraID, 10)
	}
	return p
}

func (c *Client) ReportSummary(ctx context.Context, q ReportQuery) (*dto.ReportSummary, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out dto.ReportSummary
	req.SetQueryParams(q.params()).SetResult(&out).ForceContentType("application/json")
	if err := c.execute(req, http.MethodGet, "/reports/summary"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportPDF returns the backend-rendered PDF export and its content type.
func (c *Client) ReportPDF(ctx context.Context, q ReportQuery) ([]byte, string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, "", err
	}
	req.SetQueryParams(q.params()).SetHeader("Accept", "application/pdf")

	start := time.Now()
	resp, err := req.Get("/reports/pdf")
	observe(http.MethodGet, resp, err, start)
	if err != nil {
		return nil, "", fmt.Errorf("GET /reports/pdf: %w", err)
	}
	if !resp.IsSuccess() {
		c.rejected(req, resp)
		return nil, "", newAPIError(http.MethodGet, "/reports/pdf", resp)
	}
	ct := resp.Header().Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return resp.Body(), ct, nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/cameras")
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("ping backend: status %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		// Some backend routes omit Content-Type on JSON bodies.
		req.SetResult(result).ForceContentType("application/json")
	}
	return c.execute(req, method, path)
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx)
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend token: %w", err)
		}
		req.SetAuthToken(tok)
	}
	return req, nil
}

func (c *Client) execute(req *resty.Request, method, path string) error {
	start := time.Now()
	resp, err := req.Execute(method, path)
	observe(method, resp, err, start)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		c.rejected(req, resp)
		return newAPIError(method, path, resp)
	}
	return nil
}

// rejected drops the session token when the backend refuses it, so the next
// call logs in again.
func (c *Client) rejected(req *resty.Request, resp *resty.Response) {
	if resp.StatusCode() != http.StatusUnauthorized || req.Token == "" {
		return
	}
	if inv, ok := c.tokens.(invalidator); ok {
		inv.Invalidate()
		slog.Warn("backend rejected session token", "path", req.URL)
	}
}

func observe(method string, resp *resty.Response, err error, start time.Time) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	observability.BackendRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}

func newAPIError(method, path string, resp *resty.Response) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode(),
		Message:    errorMessage(resp.Body()),
	}
}

func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no response body"
	}
	return msg
}
