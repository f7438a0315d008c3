// Package storage provides object storage for model artifact files
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/modelfactory/portal/internal/domain"
)

// BlobStore stores and retrieves artifact blobs
type BlobStore interface {
	// Store writes a blob and returns its storage path
	Store(ctx context.Context, fileType domain.FileType, fileName string, reader io.Reader, size int64) (string, error)
	// Delete removes a blob by storage path
	Delete(ctx context.Context, storagePath string) error
	// Exists reports whether a blob exists at the given path
	Exists(ctx context.Context, storagePath string) (bool, error)
	// PresignedGetURL generates a temporary download URL for a blob
	PresignedGetURL(ctx context.Context, storagePath string, expiry time.Duration) (string, error)
}

// Config MinIO storage configuration
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
	PresignedExpiry time.Duration
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,
		Region:          "us-east-1",
		Bucket:          "model-artifacts",
		PresignedExpiry: 15 * time.Minute,
	}
}

// MinioStore is a MinIO-backed BlobStore
type MinioStore struct {
	client *minio.Client
	config *Config
}

// NewMinioStore creates a MinIO-backed blob store and ensures the bucket exists
func NewMinioStore(ctx context.Context, cfg *Config) (*MinioStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinioStore{client: client, config: cfg}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{
		Region: s.config.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.config.Bucket, err)
	}
	return nil
}

// ObjectKey builds the storage path for a file. Blobs are grouped by
// file type, with a random prefix so name collisions cannot occur.
func ObjectKey(fileType domain.FileType, fileName string, unique string) string {
	return fmt.Sprintf("%s/%s_%s", fileType, unique, fileName)
}

// Store writes a blob and returns its storage path
func (s *MinioStore) Store(ctx context.Context, fileType domain.FileType, fileName string, reader io.Reader, size int64) (string, error) {
	objectName := ObjectKey(fileType, fileName, newUniquePrefix())

	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}
	return objectName, nil
}

// Delete removes a blob by storage path
func (s *MinioStore) Delete(ctx context.Context, storagePath string) error {
	err := s.client.RemoveObject(ctx, s.config.Bucket, storagePath, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", storagePath, err)
	}
	return nil
}

// Exists reports whether a blob exists at the given path
func (s *MinioStore) Exists(ctx context.Context, storagePath string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.config.Bucket, storagePath, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", storagePath, err)
	}
	return true, nil
}

// PresignedGetURL generates a temporary download URL for a blob
func (s *MinioStore) PresignedGetURL(ctx context.Context, storagePath string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = s.config.PresignedExpiry
	}
	u, err := s.client.PresignedGetObject(ctx, s.config.Bucket, storagePath, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}
