package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations. The
// intake pipeline receives file bytes in the request body, so uploads are
// server-side puts; reads go out as presigned URLs so reviewers fetch the
// object directly from the provider.
type FileStorage interface {
	// Upload writes an object under the given key.
	Upload(ctx context.Context, objectKey string, contentType string, data []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for downloading/viewing an object directly from the provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
