// Package rule implements the diagnostic rule model: the IF/THEN record a
// pathway converts into, plus freestanding rules authored as text. A rule
// carries both the authoritative text and its parsed conditions and actions,
// kept in sync by the compose/parse pair in this package.
package rule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elicitlabs/elicit/pkg/pathway"
)

// Kind classifies how a rule came into existence.
type Kind string

// Rule kinds, derived from the rule's payload rather than stored.
const (
	KindPathway Kind = "Pathway" // built from a visual pathway, snapshot attached
	KindCapture Kind = "Capture" // quick capture with a problem type
	KindRule    Kind = "Rule"    // plain text rule
)

// Rule is a diagnostic rule with its structured components and usage
// metadata. Conditions and actions share the types the pathway converter
// produces, so a converted pathway becomes a Rule without translation.
type Rule struct {
	ID               string              `json:"rule_id" bson:"rule_id"`
	Text             string              `json:"text" bson:"text"`
	Name             string              `json:"name" bson:"name"`
	Description      string              `json:"description" bson:"description"`
	IsComplex        bool                `json:"is_complex" bson:"is_complex"`
	Conditions       []pathway.Condition `json:"conditions" bson:"conditions"`
	Actions          []pathway.Action    `json:"actions" bson:"actions"`
	CreatedDate      time.Time           `json:"created_date" bson:"created_date"`
	LastModifiedDate time.Time           `json:"last_modified_date" bson:"last_modified_date"`
	LastUsed         *time.Time          `json:"last_used" bson:"last_used"`
	UseCount         int                 `json:"use_count" bson:"use_count"`
	Metadata         map[string]string   `json:"metadata" bson:"metadata"`
	PathwayData      *pathway.Snapshot   `json:"pathway_data" bson:"pathway_data"`
}

// New creates an empty rule with a generated identifier.
func New(text string) *Rule {
	now := time.Now()
	return &Rule{
		ID:               uuid.NewString(),
		Text:             text,
		IsComplex:        true,
		CreatedDate:      now,
		LastModifiedDate: now,
		Metadata:         map[string]string{},
	}
}

// FromPathway converts a pathway into a rule, carrying over the structured
// record and a full snapshot of the source graph.
func FromPathway(p *pathway.Pathway) *Rule {
	sr := p.StructuredRule()
	r := New(sr.Text)
	r.Name = sr.Name
	r.Description = sr.Description
	r.IsComplex = sr.IsComplex
	r.Conditions = sr.Conditions
	r.Actions = sr.Actions
	r.PathwayData = sr.PathwayData
	return r
}

// Kind returns how the rule was authored, judged by its payload: a rule
// with a pathway snapshot is a Pathway rule, one with a problem_type
// metadata entry is a quick Capture, anything else is a plain Rule.
func (r *Rule) Kind() Kind {
	if r.PathwayData != nil {
		return KindPathway
	}
	if r.Metadata["problem_type"] != "" {
		return KindCapture
	}
	return KindRule
}

// touch updates the modification timestamp.
func (r *Rule) touch() {
	r.LastModifiedDate = time.Now()
}

// RecordUsage increments the use counter and stamps the last-used time.
func (r *Rule) RecordUsage() {
	r.UseCount++
	now := time.Now()
	r.LastUsed = &now
}

// AddCondition appends a condition clause. The previous last clause gets the
// given connector; the new last clause always ends the chain with an empty
// connector.
func (r *Rule) AddCondition(param, operator, value, connector string) {
	if operator == "" {
		operator = "="
	}
	if value == "" {
		value = "true"
	}
	if connector == "" {
		connector = "AND"
	}

	if len(r.Conditions) > 0 {
		r.Conditions[len(r.Conditions)-1].Connector = connector
	}
	r.Conditions = append(r.Conditions, pathway.Condition{
		Param:    param,
		Operator: operator,
		Value:    value,
	})

	r.touch()
	r.ComposeText()
}

// AddAction appends an action step. A zero sequence is assigned the next
// number after the highest existing one.
func (r *Rule) AddAction(actionType, target, value string, sequence int) {
	if actionType == "" {
		actionType = "Apply"
	}
	if sequence <= 0 {
		sequence = 1
		for _, a := range r.Actions {
			if a.Sequence >= sequence {
				sequence = a.Sequence + 1
			}
		}
	}

	r.Actions = append(r.Actions, pathway.Action{
		Type:     actionType,
		Target:   target,
		Value:    value,
		Sequence: sequence,
	})

	r.touch()
	r.ComposeText()
}

// SetConditions replaces all condition clauses and recomposes the text.
func (r *Rule) SetConditions(conditions []pathway.Condition) {
	r.Conditions = conditions
	r.touch()
	r.ComposeText()
}

// SetActions replaces all action steps and recomposes the text.
func (r *Rule) SetActions(actions []pathway.Action) {
	r.Actions = actions
	r.touch()
	r.ComposeText()
}

// Report aggregates rule validation issues by category.
type Report struct {
	Conditions []string `json:"conditions" bson:"conditions"`
	Actions    []string `json:"actions" bson:"actions"`
	General    []string `json:"general" bson:"general"`
}

// OK reports whether the rule passed validation with no issues.
func (rep Report) OK() bool {
	return len(rep.Conditions) == 0 && len(rep.Actions) == 0 && len(rep.General) == 0
}

// Count returns the total number of issues across all categories.
func (rep Report) Count() int {
	return len(rep.Conditions) + len(rep.Actions) + len(rep.General)
}

// Validate checks the rule for completeness and correctness.
func (r *Rule) Validate() Report {
	var rep Report

	if r.ID == "" {
		rep.General = append(rep.General, "Rule ID is missing")
	}
	if r.Text == "" {
		rep.General = append(rep.General, "Rule text is empty")
	}

	if len(r.Conditions) == 0 {
		rep.Conditions = append(rep.Conditions, "No conditions defined")
	} else {
		for i, c := range r.Conditions {
			if c.Param == "" {
				rep.Conditions = append(rep.Conditions, fmt.Sprintf("Condition %d is missing a parameter", i+1))
			}
		}
		if last := r.Conditions[len(r.Conditions)-1]; last.Connector != "" {
			rep.Conditions = append(rep.Conditions, "Last condition should not have a connector")
		}
	}

	if len(r.Actions) == 0 {
		rep.Actions = append(rep.Actions, "No actions defined")
	} else {
		seen := make(map[int]bool)
		for i, a := range r.Actions {
			if a.Target == "" {
				rep.Actions = append(rep.Actions, fmt.Sprintf("Action %d is missing a target", i+1))
			}
			if seen[a.Sequence] {
				rep.Actions = append(rep.Actions, fmt.Sprintf("Duplicate sequence number %d", a.Sequence))
			}
			seen[a.Sequence] = true
		}
	}

	return rep
}

// Duplicate returns a copy with a new identifier, fresh timestamps, and
// usage statistics reset. A named rule's copy is prefixed "Copy of".
func (r *Rule) Duplicate() *Rule {
	dup := *r
	dup.ID = uuid.NewString()
	now := time.Now()
	dup.CreatedDate = now
	dup.LastModifiedDate = now
	dup.LastUsed = nil
	dup.UseCount = 0
	if r.Name != "" {
		dup.Name = "Copy of " + r.Name
	}

	dup.Conditions = append([]pathway.Condition(nil), r.Conditions...)
	dup.Actions = append([]pathway.Action(nil), r.Actions...)
	dup.Metadata = make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		dup.Metadata[k] = v
	}
	if r.PathwayData != nil {
		snap := *r.PathwayData
		dup.PathwayData = &snap
	}
	return &dup
}

// Summary returns a concise one-line description for list displays,
// truncated to maxLength with an ellipsis. It prefers the name, then the
// description, then the pathway's problem statement, then the IF part of
// the rule text.
func (r *Rule) Summary(maxLength int) string {
	if maxLength <= 0 {
		maxLength = 80
	}

	if r.Name != "" {
		return truncate(r.Name, maxLength)
	}
	if r.Description != "" {
		return truncate(r.Description, maxLength)
	}

	if r.PathwayData != nil {
		if content := problemStatement(r.PathwayData); content != "" {
			return truncate(content, maxLength)
		}
	}

	if parts := strings.Split(r.Text, thenMarker); len(parts) == 2 {
		ifPart := strings.TrimSpace(strings.Replace(parts[0], "IF ", "", 1))
		if ifPart != "" {
			return truncate(ifPart, maxLength)
		}
	}

	return truncate(r.Text, maxLength)
}

// FormattedLastUsed returns the last-used time for display, or "Never".
func (r *Rule) FormattedLastUsed() string {
	if r.LastUsed == nil {
		return "Never"
	}
	return r.LastUsed.Format("2006-01-02 15:04")
}

// problemStatement finds the first problem node's content in a snapshot,
// scanning in node order for a stable answer.
func problemStatement(snap *pathway.Snapshot) string {
	for _, id := range snap.NodeOrder {
		if n, ok := snap.Nodes[id]; ok && n.Type == pathway.TypeProblem && n.Content != "" {
			return n.Content
		}
	}
	for _, n := range snap.Nodes {
		if n.Type == pathway.TypeProblem && n.Content != "" {
			return n.Content
		}
	}
	return ""
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}

// Marshal converts a rule to pretty-printed JSON bytes.
func Marshal(r *Rule) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON bytes into a rule.
func Unmarshal(data []byte) (*Rule, error) {
	var r Rule
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	return &r, nil
}
