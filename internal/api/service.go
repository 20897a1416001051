// Package api exposes the rule collection over HTTP for serve mode. It
// wraps the collection in a service that serializes access and persists
// every mutation, and mounts REST handlers on a chi router.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elicitlabs/elicit/pkg/cache"
	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/errors"
	"github.com/elicitlabs/elicit/pkg/rule"
	"github.com/elicitlabs/elicit/pkg/store"
)

// renderTTL bounds how long cached render artifacts stay valid.
const renderTTL = 24 * time.Hour

// Service mediates between HTTP handlers and the collection. All access
// goes through its lock so handlers and the file watcher can run
// concurrently.
type Service struct {
	mu     sync.RWMutex
	coll   *collection.Collection
	store  store.Store
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewService loads the collection from st and wraps it. artifacts may be a
// null cache when render caching is disabled.
func NewService(ctx context.Context, st store.Store, artifacts cache.Cache, logger *log.Logger) (*Service, error) {
	coll, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Service{
		coll:   coll,
		store:  st,
		cache:  artifacts,
		keyer:  cache.NewDefaultKeyer(),
		logger: logger,
	}, nil
}

// Reload replaces the in-memory collection with the persisted one. The file
// watcher calls this when the collection file changes on disk.
func (s *Service) Reload(ctx context.Context) error {
	coll, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.coll = coll
	s.mu.Unlock()
	s.logger.Info("collection reloaded", "rules", coll.Len())
	return nil
}

// save persists the current collection. Callers must hold the write lock.
func (s *Service) save(ctx context.Context) error {
	return s.store.Save(ctx, s.coll)
}

// Rules returns the rules matching opts, in collection order.
func (s *Service) Rules(opts collection.SearchOptions) []*rule.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Search(opts)
}

// Rule returns one rule by ID.
func (s *Service) Rule(id string) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.coll.Get(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeRuleNotFound, "rule %s not found", id)
	}
	return r, nil
}

// Create adds a rule and persists the collection.
func (s *Service) Create(ctx context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll.Add(r)
	return s.save(ctx)
}

// Update replaces an existing rule.
func (s *Service) Update(ctx context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coll.Update(r) {
		return errors.New(errors.ErrCodeRuleNotFound, "rule %s not found", r.ID)
	}
	return s.save(ctx)
}

// Delete removes a rule by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coll.Remove(id) {
		return errors.New(errors.ErrCodeRuleNotFound, "rule %s not found", id)
	}
	return s.save(ctx)
}

// Use records a usage event for a rule.
func (s *Service) Use(ctx context.Context, id string) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coll.RecordUsage(id) {
		return nil, errors.New(errors.ErrCodeRuleNotFound, "rule %s not found", id)
	}
	r, _ := s.coll.Get(id)
	return r, s.save(ctx)
}

// Duplicate copies a rule and returns the copy.
func (s *Service) Duplicate(ctx context.Context, id string) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyID, ok := s.coll.DuplicateRule(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeRuleNotFound, "rule %s not found", id)
	}
	r, _ := s.coll.Get(copyID)
	return r, s.save(ctx)
}

// Stats returns collection statistics.
func (s *Service) Stats() collection.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Stats()
}

// ValidateAll validates every rule in the collection.
func (s *Service) ValidateAll() map[string]rule.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.ValidateAll()
}

// Export builds an export payload for the given rule IDs (nil means all).
func (s *Service) Export(ruleIDs []string) collection.ExportPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Export(ruleIDs)
}

// Import merges an export payload into the collection.
func (s *Service) Import(ctx context.Context, payload collection.ExportPayload) (added, updated int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, updated = s.coll.Import(payload)
	return added, updated, s.save(ctx)
}
