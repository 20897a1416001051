// Package collection manages a set of diagnostic rules: the in-memory
// store behind the library views, search, usage statistics, and rule
// import/export.
package collection

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/elicitlabs/elicit/pkg/rule"
)

// Collection is a named set of diagnostic rules. Rules are held by ID with
// insertion order preserved, so listings and exports are stable across
// runs.
type Collection struct {
	ID               string    `json:"collection_id" bson:"collection_id"`
	Name             string    `json:"name" bson:"name"`
	Description      string    `json:"description" bson:"description"`
	CreatedDate      time.Time `json:"created_date" bson:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date" bson:"last_modified_date"`

	rules map[string]*rule.Rule
	order []string
}

// DefaultName is used when a collection is created without a name.
const DefaultName = "Diagnostic Collection"

// New creates an empty collection with a generated identifier.
func New(name string) *Collection {
	if name == "" {
		name = DefaultName
	}
	now := time.Now()
	return &Collection{
		ID:               uuid.NewString(),
		Name:             name,
		CreatedDate:      now,
		LastModifiedDate: now,
		rules:            make(map[string]*rule.Rule),
	}
}

func (c *Collection) touch() {
	c.LastModifiedDate = time.Now()
}

// Add inserts a rule and returns its ID. An existing rule with the same ID
// is replaced in place, keeping its listing position.
func (c *Collection) Add(r *rule.Rule) string {
	if _, exists := c.rules[r.ID]; !exists {
		c.order = append(c.order, r.ID)
	}
	c.rules[r.ID] = r
	c.touch()
	return r.ID
}

// Update replaces an existing rule. Returns false if no rule with the same
// ID is in the collection.
func (c *Collection) Update(r *rule.Rule) bool {
	if _, ok := c.rules[r.ID]; !ok {
		return false
	}
	c.rules[r.ID] = r
	c.touch()
	return true
}

// Remove deletes a rule by ID. Returns false if it was not present.
func (c *Collection) Remove(id string) bool {
	if _, ok := c.rules[id]; !ok {
		return false
	}
	delete(c.rules, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	c.touch()
	return true
}

// Get returns a rule by ID.
func (c *Collection) Get(id string) (*rule.Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

// Rules returns all rules in insertion order.
func (c *Collection) Rules() []*rule.Rule {
	out := make([]*rule.Rule, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.rules[id])
	}
	return out
}

// RulesByKind returns the rules of one kind, in insertion order.
func (c *Collection) RulesByKind(k rule.Kind) []*rule.Rule {
	var out []*rule.Rule
	for _, id := range c.order {
		if r := c.rules[id]; r.Kind() == k {
			out = append(out, r)
		}
	}
	return out
}

// Kinds returns the set of rule kinds present in the collection.
func (c *Collection) Kinds() map[rule.Kind]bool {
	kinds := make(map[rule.Kind]bool)
	for _, r := range c.rules {
		kinds[r.Kind()] = true
	}
	return kinds
}

// Len returns the number of rules in the collection.
func (c *Collection) Len() int {
	return len(c.rules)
}

// RecordUsage records a use of the given rule. Returns false if the rule
// is not in the collection.
func (c *Collection) RecordUsage(id string) bool {
	r, ok := c.rules[id]
	if !ok {
		return false
	}
	r.RecordUsage()
	c.touch()
	return true
}

// DuplicateRule copies a rule under a new ID and adds the copy. Returns
// the new ID, or empty and false if the original is missing.
func (c *Collection) DuplicateRule(id string) (string, bool) {
	r, ok := c.rules[id]
	if !ok {
		return "", false
	}
	dup := r.Duplicate()
	c.Add(dup)
	return dup.ID, true
}

// RecentlyUsed returns up to count rules ordered by most recent use.
// Rules never used are excluded.
func (c *Collection) RecentlyUsed(count int) []*rule.Rule {
	var used []*rule.Rule
	for _, id := range c.order {
		if r := c.rules[id]; r.LastUsed != nil {
			used = append(used, r)
		}
	}
	slices.SortStableFunc(used, func(a, b *rule.Rule) int {
		return b.LastUsed.Compare(*a.LastUsed)
	})
	if count > 0 && len(used) > count {
		used = used[:count]
	}
	return used
}

// FrequentlyUsed returns up to count rules ordered by use count, highest
// first.
func (c *Collection) FrequentlyUsed(count int) []*rule.Rule {
	out := c.Rules()
	slices.SortStableFunc(out, func(a, b *rule.Rule) int {
		return b.UseCount - a.UseCount
	})
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// ValidateAll validates every rule and returns the reports of rules with
// issues, keyed by rule ID.
func (c *Collection) ValidateAll() map[string]rule.Report {
	results := make(map[string]rule.Report)
	for _, id := range c.order {
		if rep := c.rules[id].Validate(); !rep.OK() {
			results[id] = rep
		}
	}
	return results
}

// UsageStats breaks the collection down by how often rules are used.
type UsageStats struct {
	NeverUsed    int `json:"never_used" bson:"never_used"`
	UsedOnce     int `json:"used_once" bson:"used_once"`
	UsedMultiple int `json:"used_multiple" bson:"used_multiple"`
}

// Statistics summarizes the collection for dashboards and reports.
type Statistics struct {
	TotalRules       int               `json:"total_rules" bson:"total_rules"`
	RuleCountsByKind map[rule.Kind]int `json:"rule_counts_by_kind" bson:"rule_counts_by_kind"`
	Usage            UsageStats        `json:"usage_stats" bson:"usage_stats"`
	EarliestRule     *time.Time        `json:"earliest_rule" bson:"earliest_rule"`
	LatestRule       *time.Time        `json:"latest_rule" bson:"latest_rule"`
	LatestUsage      *time.Time        `json:"latest_usage" bson:"latest_usage"`
}

// Stats computes summary statistics over the collection.
func (c *Collection) Stats() Statistics {
	stats := Statistics{
		TotalRules:       len(c.rules),
		RuleCountsByKind: make(map[rule.Kind]int),
	}

	for _, r := range c.rules {
		stats.RuleCountsByKind[r.Kind()]++

		switch {
		case r.UseCount == 0:
			stats.Usage.NeverUsed++
		case r.UseCount == 1:
			stats.Usage.UsedOnce++
		default:
			stats.Usage.UsedMultiple++
		}

		created := r.CreatedDate
		if stats.EarliestRule == nil || created.Before(*stats.EarliestRule) {
			stats.EarliestRule = &created
		}
		if stats.LatestRule == nil || created.After(*stats.LatestRule) {
			stats.LatestRule = &created
		}
		if r.LastUsed != nil && (stats.LatestUsage == nil || r.LastUsed.After(*stats.LatestUsage)) {
			stats.LatestUsage = r.LastUsed
		}
	}

	return stats
}
