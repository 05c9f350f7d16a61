package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a publication target for immutable dataset blobs.
type Store interface {
	// Put writes a blob, replacing any existing blob with the same name.
	Put(ctx context.Context, name string, data []byte) error
	// Get fetches a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// URI returns the location consumers fetch the blob from.
	URI(name string) string
}
