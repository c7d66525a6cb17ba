// internal/storage/objectstore.go

// Package storage persists document images in an object store and issues
// short-lived signed URLs for reads.
package storage

import "context"

// ObjectStore is the surface the submission pipeline and workers depend
// on. The S3 implementation is the production one; tests use fakes.
type ObjectStore interface {
	// Upload stores an object and returns nothing; the caller owns key
	// generation so failed pipelines can compensate with the same keys.
	Upload(ctx context.Context, key string, body []byte) error

	// Download fetches an object's bytes.
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a time-limited GET URL for the key.
	PresignGet(ctx context.Context, key string) (string, error)
}
