// Package blob stores contract and invoice documents on local disk or S3.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/nusacloud/billing-api/internal/config"
)

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("object not found")

// ErrSignedURLUnavailable reports a backend that cannot mint signed URLs;
// callers fall back to streaming the object through the API.
var ErrSignedURLUnavailable = errors.New("signed urls not supported by this backend")

type PutOptions struct {
	ContentType string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is the document storage abstraction shared by contracts and
// invoices.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// SignedURL returns a time-limited direct download URL, or
	// ErrSignedURLUnavailable when the backend has no such concept.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the store named by cfg.Storage ("local" or "s3").
func New(ctx context.Context, cfg config.DocumentsConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case "s3":
		return newS3Store(ctx, cfg)
	default:
		return newLocalStore(cfg)
	}
}
