package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. Useful
// when several collections share one cache backend and their artifacts
// must not collide.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "collection:abc123:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RenderKey generates a prefixed key for a rendered pathway artifact.
func (k *ScopedKeyer) RenderKey(pathwayHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(pathwayHash, opts)
}

// ExportKey generates a prefixed key for an exported collection artifact.
func (k *ScopedKeyer) ExportKey(collectionHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(collectionHash, opts)
}
