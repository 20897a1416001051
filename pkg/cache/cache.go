// Package cache provides artifact caching for rendered pathway diagrams
// and exports. Rendering a pathway through Graphviz is the expensive step
// in the serve path, so rendered artifacts are cached keyed by a hash of
// the pathway snapshot and the render options.
//
// Three backends are provided: a file cache for CLI usage, a Redis cache
// for server deployments, and a null cache for disabling caching.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys with a TTL.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// RenderKeyOpts are the options that distinguish one rendered artifact
// from another for the same pathway.
type RenderKeyOpts struct {
	Format string // "svg", "png", "dot"
}

// ExportKeyOpts are the options that distinguish one export from another
// for the same collection.
type ExportKeyOpts struct {
	Format string // "json", "csv", "text"
}

// Keyer generates cache keys for the artifact types Elicit caches.
// Implementations must be deterministic: the same inputs always produce
// the same key.
type Keyer interface {
	// RenderKey generates a key for a rendered pathway artifact.
	// pathwayHash is a content hash of the pathway snapshot.
	RenderKey(pathwayHash string, opts RenderKeyOpts) string

	// ExportKey generates a key for an exported collection artifact.
	// collectionHash is a content hash of the collection snapshot.
	ExportKey(collectionHash string, opts ExportKeyOpts) string
}

// DefaultKeyer is the standard key scheme. Keys embed a type prefix so a
// shared backend can hold renders and exports side by side.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// RenderKey generates a key for a rendered pathway artifact.
func (k *DefaultKeyer) RenderKey(pathwayHash string, opts RenderKeyOpts) string {
	return hashKey("render", pathwayHash, opts)
}

// ExportKey generates a key for an exported collection artifact.
func (k *DefaultKeyer) ExportKey(collectionHash string, opts ExportKeyOpts) string {
	return hashKey("export", collectionHash, opts)
}
