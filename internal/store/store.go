// Package store provides the named-collection document store backing all
// persisted state. A collection is a single JSON document read and written
// as a whole; Update is the atomic read-modify-write primitive every mutation
// must go through.
package store

import (
	"context"
	"errors"
)

var ErrCollectionNotFound = errors.New("collection not found")

// UpdateFunc receives the current document (nil when the collection does not
// exist yet) and returns the replacement. Returning an error aborts the
// update without writing.
type UpdateFunc func(current []byte) ([]byte, error)

type Store interface {
	// Get returns the raw document, or ErrCollectionNotFound.
	Get(ctx context.Context, collection string) ([]byte, error)

	// Put replaces the document unconditionally.
	Put(ctx context.Context, collection string, doc []byte) error

	// Update applies fn under the store's per-collection exclusion, so
	// concurrent updates to the same collection never lose writes.
	Update(ctx context.Context, collection string, fn UpdateFunc) error

	Close() error
}
