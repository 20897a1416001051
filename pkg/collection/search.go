package collection

import (
	"fmt"
	"strings"
	"time"

	"github.com/elicitlabs/elicit/pkg/rule"
)

// UsageFilter narrows a search by how often rules have been used.
type UsageFilter string

// Usage filter values.
const (
	UsageAny        UsageFilter = ""
	UsageNever      UsageFilter = "never"
	UsageAtLeastOne UsageFilter = "at_least_once"
	UsageFrequent   UsageFilter = "frequent" // five or more uses
	UsageRecent     UsageFilter = "recent"   // has a last-used timestamp
)

// frequentThreshold is the use count at which a rule counts as frequently
// used.
const frequentThreshold = 5

// SearchFields limits which parts of a rule the query text matches against.
type SearchFields string

// Search field scopes.
const (
	FieldsAll        SearchFields = ""
	FieldsText       SearchFields = "text" // rule text and description
	FieldsConditions SearchFields = "conditions"
	FieldsActions    SearchFields = "actions"
)

// SearchOptions describes a rule search. The zero value matches every rule.
type SearchOptions struct {
	Query         string
	CaseSensitive bool
	Kind          rule.Kind // empty matches all kinds
	Fields        SearchFields
	Usage         UsageFilter
	DateFrom      *time.Time // earliest creation date, inclusive
	DateTo        *time.Time // latest creation date, inclusive
}

// Search returns the rules matching the given options, in insertion order.
func (c *Collection) Search(opts SearchOptions) []*rule.Rule {
	query := opts.Query
	if !opts.CaseSensitive {
		query = strings.ToLower(query)
	}

	var out []*rule.Rule
	for _, id := range c.order {
		r := c.rules[id]

		if opts.Kind != "" && r.Kind() != opts.Kind {
			continue
		}
		if query != "" && !matchesQuery(r, query, opts.CaseSensitive, opts.Fields) {
			continue
		}
		if opts.DateFrom != nil && r.CreatedDate.Before(*opts.DateFrom) {
			continue
		}
		if opts.DateTo != nil && r.CreatedDate.After(*opts.DateTo) {
			continue
		}
		if !matchesUsage(r, opts.Usage) {
			continue
		}

		out = append(out, r)
	}
	return out
}

// matchesQuery reports whether the query appears in any of the rule's
// searchable fields within the given scope.
func matchesQuery(r *rule.Rule, query string, caseSensitive bool, fields SearchFields) bool {
	var haystacks []string

	if fields == FieldsAll || fields == FieldsText {
		haystacks = append(haystacks, r.Text, r.Description, r.Name)
	}
	if fields == FieldsAll || fields == FieldsConditions {
		for _, cond := range r.Conditions {
			haystacks = append(haystacks, fmt.Sprintf("%s %s %s", cond.Param, cond.Operator, cond.Value))
		}
	}
	if fields == FieldsAll || fields == FieldsActions {
		for _, act := range r.Actions {
			haystacks = append(haystacks, fmt.Sprintf("%s %s %s", act.Type, act.Target, act.Value))
		}
	}

	for _, text := range haystacks {
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, query) {
			return true
		}
	}
	return false
}

func matchesUsage(r *rule.Rule, filter UsageFilter) bool {
	switch filter {
	case UsageNever:
		return r.UseCount == 0
	case UsageAtLeastOne:
		return r.UseCount > 0
	case UsageFrequent:
		return r.UseCount >= frequentThreshold
	case UsageRecent:
		return r.LastUsed != nil
	default:
		return true
	}
}
