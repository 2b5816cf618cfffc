// Package store persists enriched properties keyed by their normalized APN.
package store

import (
	"context"

	"github.com/chico-rentals/rental-cli/internal/model"
)

// Store is the property persistence used by the import pipeline. Keys are
// normalized identifiers; uniqueness on the key is enforced by the backend.
type Store interface {
	// Exists reports whether a property with key is already stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Insert writes p. It returns false, nil when a property with the same
	// key already exists, so concurrent imports never create duplicates.
	Insert(ctx context.Context, p *model.Property) (bool, error)

	// Get returns the property for key, or nil, nil when absent.
	Get(ctx context.Context, key string) (*model.Property, error)

	// Count returns the number of stored properties.
	Count(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
