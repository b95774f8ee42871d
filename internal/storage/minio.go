package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrReportExists is returned by PutReport when the run already stored a report.
var ErrReportExists = errors.New("report already exists")

var contentTypes = map[string]string{
	"csv": "text/csv",
}

// MinIOClient writes sampling reports to MinIO.
type MinIOClient struct {
	client     *minio.Client
	bucketName string
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIOClient creates a new MinIO storage client, creating the bucket if needed.
func NewMinIOClient(ctx context.Context, cfg MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOClient{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// PutReport uploads a run's report. Reports are written once: a second
// upload for the same key fails with ErrReportExists.
func (m *MinIOClient) PutReport(ctx context.Context, key ObjectKey, report []byte) error {
	contentType, ok := contentTypes[key.Extension]
	if !ok {
		return fmt.Errorf("unsupported report extension %q", key.Extension)
	}

	_, err := m.client.StatObject(ctx, m.bucketName, key.Key(), minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%w: %s", ErrReportExists, key.Key())
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to check report %s: %w", key.Key(), err)
	}

	_, err = m.client.PutObject(ctx, m.bucketName, key.Key(), bytes.NewReader(report), int64(len(report)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"run-id": key.RunID.String()},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}

	return nil
}
