// Package reports serves the dashboard statistics pages from the backend.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/your-org/sentinel/internal/backend"
	"github.com/your-org/sentinel/pkg/dto"
)

var (
	ErrInvalidRange  = errors.New("from must not be after to")
	ErrRangeTooLarge = errors.New("report range too large")
)

// Backend is the report side of the backend client.
type Backend interface {
	ReportSummary(ctx context.Context, q backend.ReportQuery) (*dto.ReportSummary, error)
	ReportPDF(ctx context.Context, q backend.ReportQuery) ([]byte, string, error)
}

type Service struct {
	backend  Backend
	cache    *cache.Cache
	maxRange time.Duration
}

func NewService(b Backend, ttl, maxRange time.Duration) *Service {
	return &Service{
		backend:  b,
		cache:    cache.New(ttl, 2*ttl),
		maxRange: maxRange,
	}
}

// Validate checks the time range of q.
func (s *Service) Validate(q backend.ReportQuery) error {
	if q.From.After(q.To) {
		return ErrInvalidRange
	}
	if s.maxRange > 0 && q.To.Sub(q.From) > s.maxRange {
		return fmt.Errorf("%w: at most %s", ErrRangeTooLarge, s.maxRange)
	}
	return nil
}

// Summary returns totals, camera ranking and daily counts for q. Results are
// cached per query.
func (s *Service) Summary(ctx context.Context, q backend.ReportQuery) (*dto.ReportSummary, error) {
	if err := s.Validate(q); err != nil {
		return nil, err
	}
	key := cacheKey(q)
	if v, ok := s.cache.Get(key); ok {
		return v.(*dto.ReportSummary), nil
	}

	summary, err := s.backend.ReportSummary(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("report summary: %w", err)
	}
	s.cache.SetDefault(key, summary)
	slog.Debug("report summary cached", "key", key)
	return summary, nil
}

// PDF returns the backend export for q. Exports are never cached.
func (s *Service) PDF(ctx context.Context, q backend.ReportQuery) ([]byte, string, error) {
	if err := s.Validate(q); err != nil {
		return nil, "", err
	}
	data, contentType, err := s.backend.ReportPDF(ctx, q)
	if err != nil {
		return nil, "", fmt.Errorf("report pdf: %w", err)
	}
	return data, contentType, nil
}

// Flush drops all cached summaries.
func (s *Service) Flush() {
	s.cache.Flush()
}

func cacheKey(q backend.ReportQuery) string {
	cam := "all"
	if q.CameraID != nil {
		cam = strconv.FormatInt(*q.CameraID, 10)
	}
	return q.From.UTC().Format(time.RFC3339) + "|" + q.To.UTC().Format(time.RFC3339) + "|" + cam
}
