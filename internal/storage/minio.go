// Package storage hands out playback URLs for recorded alert clips.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/sentinel/internal/config"
)

var ErrInvalidKey = errors.New("invalid clip key")

// ClipStore presigns GET URLs for clips in an S3-compatible bucket. Video
// bytes never pass through the gateway.
type ClipStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

func NewClipStore(cfg config.ClipsConfig) (*ClipStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		// a fixed region avoids a bucket-location lookup per presign
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &ClipStore{
		client: client,
		bucket: cfg.Bucket,
		ttl:    cfg.URLTTL,
		now:    time.Now,
	}, nil
}

// PresignClip returns a time-limited URL for the clip stored under key. Keys
// may be bare object names or s3://bucket/name references.
func (s *ClipStore) PresignClip(ctx context.Context, key string) (string, time.Time, error) {
	bucket, object, err := s.locate(key)
	if err != nil {
		return "", time.Time{}, err
	}

	expires := s.now().Add(s.ttl)
	u, err := s.client.PresignedGetObject(ctx, bucket, object, s.ttl, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign clip %s: %w", key, err)
	}
	return u.String(), expires, nil
}

func (s *ClipStore) locate(key string) (string, string, error) {
	key = strings.TrimSpace(key)
	if rest, ok := strings.CutPrefix(key, "s3://"); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		return bucket, object, nil
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", "", ErrInvalidKey
	}
	return s.bucket, key, nil
}

// Ping checks MinIO connectivity.
func (s *ClipStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
