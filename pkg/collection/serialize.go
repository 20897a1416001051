package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/elicitlabs/elicit/pkg/rule"
)

// =============================================================================
// Snapshot - Collection Serialization Format
// =============================================================================

// Snapshot is the serialization format for collections, matching the JSON
// files the desktop tooling writes. RuleOrder carries listing order because
// JSON objects do not preserve it.
type Snapshot struct {
	ID               string                `json:"collection_id" bson:"collection_id"`
	Name             string                `json:"name" bson:"name"`
	Description      string                `json:"description" bson:"description"`
	CreatedDate      time.Time             `json:"created_date" bson:"created_date"`
	LastModifiedDate time.Time             `json:"last_modified_date" bson:"last_modified_date"`
	Rules            map[string]*rule.Rule `json:"rules" bson:"rules"`
	RuleOrder        []string              `json:"rule_order,omitempty" bson:"rule_order,omitempty"`
}

// Snapshot returns the collection in its serialization format. Rules are
// shared, not copied; callers persisting a snapshot should not mutate the
// collection concurrently.
func (c *Collection) Snapshot() Snapshot {
	rules := make(map[string]*rule.Rule, len(c.rules))
	maps.Copy(rules, c.rules)
	return Snapshot{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		CreatedDate:      c.CreatedDate,
		LastModifiedDate: c.LastModifiedDate,
		Rules:            rules,
		RuleOrder:        slices.Clone(c.order),
	}
}

// FromSnapshot reconstructs a collection from its serialization format.
// Rules are restored in RuleOrder when present, otherwise in sorted ID
// order.
func FromSnapshot(s Snapshot) *Collection {
	c := New(s.Name)
	if s.ID != "" {
		c.ID = s.ID
	}
	c.Description = s.Description

	order := s.RuleOrder
	if len(order) == 0 {
		order = slices.Sorted(maps.Keys(s.Rules))
	}
	for _, id := range order {
		r, ok := s.Rules[id]
		if !ok {
			continue
		}
		r.ID = id
		c.Add(r)
	}

	if !s.CreatedDate.IsZero() {
		c.CreatedDate = s.CreatedDate
	}
	if !s.LastModifiedDate.IsZero() {
		c.LastModifiedDate = s.LastModifiedDate
	}
	return c
}

// =============================================================================
// Export / Import
// =============================================================================

// ExportPayload is the interchange format for moving rules between
// collections.
type ExportPayload struct {
	CollectionName string                `json:"collection_name" bson:"collection_name"`
	ExportDate     time.Time             `json:"export_date" bson:"export_date"`
	Rules          map[string]*rule.Rule `json:"rules" bson:"rules"`
}

// Export packages the given rules for interchange. A nil or empty ID list
// exports every rule; unknown IDs are skipped.
func (c *Collection) Export(ruleIDs []string) ExportPayload {
	rules := make(map[string]*rule.Rule)
	if len(ruleIDs) == 0 {
		maps.Copy(rules, c.rules)
	} else {
		for _, id := range ruleIDs {
			if r, ok := c.rules[id]; ok {
				rules[id] = r
			}
		}
	}
	return ExportPayload{
		CollectionName: c.Name,
		ExportDate:     time.Now(),
		Rules:          rules,
	}
}

// Import merges the payload's rules into the collection. Rules with IDs
// already present replace the existing rule; the rest are added. Returns
// the number added and the number updated.
func (c *Collection) Import(payload ExportPayload) (added, updated int) {
	for _, id := range slices.Sorted(maps.Keys(payload.Rules)) {
		r := payload.Rules[id]
		r.ID = id
		if _, exists := c.rules[id]; exists {
			c.Update(r)
			updated++
		} else {
			c.Add(r)
			added++
		}
	}
	return added, updated
}

// =============================================================================
// Serialization API
// =============================================================================

// Write encodes the collection as pretty-printed JSON to w.
func Write(c *Collection, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Snapshot()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a JSON collection from r.
func Read(r io.Reader) (*Collection, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromSnapshot(s), nil
}

// Marshal converts a collection to pretty-printed JSON bytes.
func Marshal(c *Collection) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(c, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON bytes into a collection.
func Unmarshal(data []byte) (*Collection, error) {
	return Read(bytes.NewReader(data))
}
