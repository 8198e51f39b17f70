package outbound

import "context"

// BlobStore abstracts binary asset storage (auction images, profile
// thumbnails). Development runs on the local filesystem, production on S3;
// the backend is selected once at process startup.
type BlobStore interface {
	// Put stores data under key and returns a retrievable URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error

	// URLFor returns the retrievable URL for an existing key.
	URLFor(key string) string
}
