package store

import (
	"context"
	"sync"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/errors"
)

// MemoryStore keeps the collection in memory as serialized JSON. Used in
// tests and for ephemeral servers. Serializing on save means a loaded
// collection never shares state with a saved one, matching the isolation
// the file store provides.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the saved collection, or a new empty one if nothing has
// been saved.
func (s *MemoryStore) Load(ctx context.Context) (*collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return collection.New(""), nil
	}
	c, err := collection.Unmarshal(s.data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "parse stored collection")
	}
	return c, nil
}

// Save serializes and stores the collection.
func (s *MemoryStore) Save(ctx context.Context, c *collection.Collection) error {
	data, err := collection.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "serialize collection")
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Close does nothing for a memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
