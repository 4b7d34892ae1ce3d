package ports

import (
	"context"
	"io"
)

// BlobStore is the object storage gateway. Delete is idempotent: removing a
// URL that no longer exists is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// BlobReferences answers whether a blob URL is still stored on a metadata row.
type BlobReferences interface {
	BlobReferenced(ctx context.Context, url string) (bool, error)
}
