package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

// ErrStorageDisabled is returned by Disabled for every write.
var ErrStorageDisabled = errors.New("objectstore: storage is disabled")

// Validate checks the settings needed to reach the bucket.
func Validate(cfg config.ObjectStorageSettings) error {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return errors.New("objectstore: endpoint is required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return errors.New("objectstore: bucket is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return errors.New("objectstore: access and secret keys are required")
	}
	return nil
}

// MinIOStore implements port.ObjectStorage on an S3-compatible bucket.
type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

// NewMinIOStore connects to the endpoint and creates the bucket when missing.
func NewMinIOStore(ctx context.Context, cfg config.ObjectStorageSettings, logger *zap.Logger) (*MinIOStore, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimSuffix(client.EndpointURL().String(), "/") + "/" + cfg.Bucket
	}

	logger.Info("object storage ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return &MinIOStore{client: client, bucket: cfg.Bucket, publicURL: publicURL, logger: logger}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func (s *MinIOStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (port.StoredObject, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return port.StoredObject{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return port.StoredObject{
		Key:         info.Key,
		URL:         s.publicURL + "/" + info.Key,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (s *MinIOStore) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object storage health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("object storage bucket missing: %s", s.bucket)
	}
	return nil
}

// Disabled rejects uploads when object storage is not configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, io.Reader, int64, string) (port.StoredObject, error) {
	return port.StoredObject{}, ErrStorageDisabled
}

func (Disabled) Delete(context.Context, string) error { return nil }

var (
	_ port.ObjectStorage = (*MinIOStore)(nil)
	_ port.ObjectStorage = Disabled{}
)
