package repositories

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is the metadata returned by HEAD/GET.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is an S3-compatible bucket.
//
// Missing objects are reported as domain.ErrNotFound. Credential or network
// failures are reported as domain.ErrStorageUnavailable.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error

	// Presign returns a URL for method (GET or PUT) valid for expires.
	Presign(ctx context.Context, method, key string, expires time.Duration) (string, error)
}

// Cache is a JSON value cache with TTLs backed by the key-value store.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}
