package domain

import (
	"context"
)

// StorageRepo is the append-only document store surface.
// No update-in-place is exposed: a changed payload for an already-seen URL is
// a new row, a decision the sourcer makes, not the store.
type StorageRepo interface {
	// Exists reports whether a document with the given URL-digest id was ever stored
	Exists(ctx context.Context, id string) (bool, error)

	// Insert stores a new document; duplicate ids surface as DuplicateKey errors
	Insert(ctx context.Context, d RawDocument) error

	// Get returns the document or a NotFound error
	Get(ctx context.Context, id string) (RawDocument, error)
}
