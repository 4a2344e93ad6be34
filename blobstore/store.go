// Package blobstore provides the storage abstraction archived
// aggregation result sets are written to.
//
// Store implementations must be safe for concurrent use. Objects are
// immutable once written; Put with an existing name replaces the whole
// object.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store reads and writes whole immutable objects by name.
type Store interface {
	// Put writes an object atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the full object, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, name string) error

	// List returns the object names under prefix in sorted order.
	List(ctx context.Context, prefix string) ([]string, error)
}
