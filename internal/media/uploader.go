package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/gabriel-vasile/mimetype"
)

// Uploader pushes local media to a BlobStore. Every call uploads; nothing is cached or deduplicated.
type Uploader struct {
	blobs   BlobStore
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewUploader(blobs BlobStore, prefix string, timeout time.Duration, logger *slog.Logger) *Uploader {
	return &Uploader{
		blobs:   blobs,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger.With("component", "uploader"),
	}
}

// Upload reads the local handle, writes it under a key derived from its trailing path segment
// and returns the resolved remote reference. Any failure is an UploadError.
func (u *Uploader) Upload(ctx context.Context, handle string) (Ref, error) {
	key := objectKey(u.prefix, handle)
	data, err := os.ReadFile(localPath(handle))
	if err != nil {
		return Ref{}, &catalogerrors.UploadError{Key: key, Err: fmt.Errorf("read local media: %w", err)}
	}
	if len(data) == 0 {
		return Ref{}, &catalogerrors.UploadError{Key: key, Err: fmt.Errorf("local media %s is empty", handle)}
	}

	ctx, cancel := u.bounded(ctx)
	defer cancel()

	contentType := mimetype.Detect(data).String()
	if err := u.blobs.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Ref{}, &catalogerrors.UploadError{Key: key, Err: err}
	}
	url, err := u.blobs.DownloadURL(ctx, key)
	if err != nil {
		return Ref{}, &catalogerrors.UploadError{Key: key, Err: err}
	}
	if !IsRemoteRef(url) {
		return Ref{}, &catalogerrors.UploadError{Key: key, Err: fmt.Errorf("blob store returned unusable url %q", url)}
	}

	u.logger.DebugContext(ctx, "media uploaded", "key", key, "size", len(data), "content_type", contentType)
	return Ref{Key: key, URL: url}, nil
}

// Discard removes an uploaded object that no record will reference.
func (u *Uploader) Discard(ctx context.Context, ref Ref) error {
	ctx, cancel := u.bounded(ctx)
	defer cancel()
	if err := u.blobs.RemoveObject(ctx, ref.Key); err != nil {
		return &catalogerrors.UploadError{Key: ref.Key, Err: err}
	}
	u.logger.InfoContext(ctx, "orphaned media discarded", "key", ref.Key)
	return nil
}

func (u *Uploader) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.timeout)
}
