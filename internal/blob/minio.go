package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps blobs in an S3-compatible bucket, one object per blob.
type MinioStore struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key := newKey()
	opts := minio.PutObjectOptions{ContentType: contentType}
	if filename != "" {
		opts.UserMetadata = map[string]string{"filename": filename}
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (Blob, error) {
	object, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return Blob{}, fmt.Errorf("minio get %s: %w", id, err)
	}
	defer object.Close()

	// GetObject is lazy; missing keys surface on Stat or first read.
	stat, err := object.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("minio stat %s: %w", id, err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return Blob{}, fmt.Errorf("minio read %s: %w", id, err)
	}

	return Blob{
		Data:        data,
		Filename:    stat.UserMetadata["Filename"],
		ContentType: stat.ContentType,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio delete %s: %w", id, err)
	}
	return nil
}
