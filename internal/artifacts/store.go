package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3-compatible storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store uploads rendered resume artifacts to S3-compatible object storage.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

func NewStore(cfg *Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// SavePDF stores a rendered PDF under the user's prefix and returns the
// object path.
func (s *Store) SavePDF(ctx context.Context, userID string, data []byte) (string, error) {
	key := fmt.Sprintf("resumes/%s/%s.pdf", userID, uuid.New().String())
	return s.put(ctx, key, data, "application/pdf")
}

// SaveHTML stores inline document text under the user's prefix and returns
// the object path.
func (s *Store) SaveHTML(ctx context.Context, userID string, html string) (string, error) {
	key := fmt.Sprintf("resumes/%s/%s.html", userID, uuid.New().String())
	return s.put(ctx, key, []byte(html), "text/html")
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	s.logger.Info("Artifact stored",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	return s.bucket + "/" + key, nil
}
