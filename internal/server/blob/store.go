// Package blob stores original drawing files in S3-compatible object storage.
package blob

import (
	"context"
	"time"
)

// Store is the blob storage used by the drawing service.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
