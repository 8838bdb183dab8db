package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"otakuwave/config"
	"otakuwave/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when a key does not exist in its bucket.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored binary.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// MinioStore wraps a MinIO client serving the audio and cover buckets.
type MinioStore struct {
	client  *minio.Client
	region  string
	buckets []string
}

// NewMinioStore creates a client for cfg without touching the network.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioStore{
		client:  client,
		region:  cfg.MinioRegion,
		buckets: []string{cfg.AudioBucket, cfg.CoverBucket},
	}, nil
}

// InitMinio connects to MinIO and makes sure both buckets exist.
func InitMinio(cfg *config.Config) (*MinioStore, error) {
	store, err := NewMinioStore(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("audioBucket", cfg.AudioBucket),
		logger.String("coverBucket", cfg.CoverBucket))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, bucket := range store.buckets {
		if err := store.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}

	logger.Info("MinIO client initialized")
	return store, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		logger.Debug("Bucket already exists", logger.String("bucket", bucket))
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logger.Info("Created bucket", logger.String("bucket", bucket))
	return nil
}

// PutObject uploads size bytes from r under bucket/name.
func (s *MinioStore) PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, bucket, name, r, size, opts); err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, name, err)
	}
	return nil
}

// RemoveObject deletes bucket/name.
func (s *MinioStore) RemoveObject(ctx context.Context, bucket, name string) error {
	if err := s.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", bucket, name, err)
	}
	return nil
}

// GetObject opens bucket/name for reading. The reader also implements
// io.Seeker. The caller closes it.
func (s *MinioStore) GetObject(ctx context.Context, bucket, name string) (io.ReadCloser, *ObjectInfo, error) {
	object, err := s.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s/%s: %w", bucket, name, err)
	}

	// GetObject is lazy; Stat surfaces NoSuchKey before anything is written out.
	stat, err := object.Stat()
	if err != nil {
		object.Close()
		if code := minio.ToErrorResponse(err).Code; code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, nil, fmt.Errorf("%s/%s: %w", bucket, name, ErrObjectNotFound)
		}
		return nil, nil, fmt.Errorf("failed to stat %s/%s: %w", bucket, name, err)
	}

	return object, &ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		LastModified: stat.LastModified,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
	}, nil
}

// HasBucket reports whether bucket is one of the buckets this store serves.
func (s *MinioStore) HasBucket(bucket string) bool {
	for _, b := range s.buckets {
		if b == bucket {
			return true
		}
	}
	return false
}
