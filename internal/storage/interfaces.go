// Package storage defines interfaces for media storage backends.
// The storage layer persists and retrieves recipe image files; the
// database only holds the storage key.
package storage

import (
	"context"
	"io"
)

// Backend defines the interface for media storage backends.
// Implementations can include local filesystem, NAS, S3, or other
// storage systems. The interface is designed to be stateless and
// support horizontal scaling.
type Backend interface {
	// Store writes content under the given key, creating any parent
	// structure as needed. An existing object at the same key is
	// overwritten.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - key: Storage key (slash-separated, relative)
	//   - reader: Source of the content to store
	//   - size: Expected size in bytes, -1 if unknown
	Store(ctx context.Context, key string, reader io.Reader, size int64) error

	// Retrieve opens the content stored under key.
	// Returns a ReadCloser that must be closed after use.
	// Returns domain.ErrBlobNotFound if no object exists at key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content stored under key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}
