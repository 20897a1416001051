// Package store persists diagnostic rule collections. Three backends are
// provided: a JSON file store with rotating backups for desktop use, an
// in-memory store for tests and ephemeral servers, and a MongoDB store for
// shared deployments.
package store

import (
	"context"

	"github.com/elicitlabs/elicit/pkg/collection"
)

// Store loads and saves a rule collection.
type Store interface {
	// Load reads the persisted collection, or returns a new empty one when
	// nothing has been saved yet.
	Load(ctx context.Context) (*collection.Collection, error)

	// Save persists the collection, replacing what was stored before.
	Save(ctx context.Context, c *collection.Collection) error

	// Close releases any resources held by the store.
	Close() error
}
