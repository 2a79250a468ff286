package media

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
)

// BlobStore is the remote object store media is uploaded to. Key collisions overwrite silently.
type BlobStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, error)
	RemoveObject(ctx context.Context, key string) error
}

// MinioBlobStore stores objects in a single S3-compatible bucket.
type MinioBlobStore struct {
	client    *minio.Client
	bucket    string
	publicURL *url.URL
}

// NewMinioBlobStore returns a store for bucket. When publicURL is empty, download URLs are built from the client endpoint.
func NewMinioBlobStore(client *minio.Client, bucket, publicURL string) (*MinioBlobStore, error) {
	s := &MinioBlobStore{client: client, bucket: bucket}
	if publicURL != "" {
		u, err := url.Parse(publicURL)
		if err != nil {
			return nil, fmt.Errorf("invalid public url %q: %w", publicURL, err)
		}
		s.publicURL = u
	}
	return s, nil
}

// publicReadPolicy lets anyone GET objects, so download URLs work without signing.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},` +
	`"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// EnsureBucket creates the bucket with public read access when it does not exist.
// An existing bucket is left as it is.
func (s *MinioBlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket)); err != nil {
		return fmt.Errorf("set policy on bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioBlobStore) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// DownloadURL confirms the object exists and returns its public URL.
func (s *MinioBlobStore) DownloadURL(ctx context.Context, key string) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return "", fmt.Errorf("stat object %s: %w", key, err)
	}
	base := s.publicURL
	if base == nil {
		base = s.client.EndpointURL()
	}
	return base.JoinPath(s.bucket, key).String(), nil
}

func (s *MinioBlobStore) RemoveObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
