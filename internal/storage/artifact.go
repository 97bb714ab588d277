// Package storage persists image artifacts addressable by URL. The rest of
// the system only ever hands over bytes and a key; where they land (local
// disk or an object store) is a deployment choice.
package storage

import "context"

type ArtifactStore interface {
	// Save writes the artifact and returns the URL path it is served under.
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Remove deletes the artifact. Removing a missing artifact is not an
	// error.
	Remove(ctx context.Context, key string) error
}
