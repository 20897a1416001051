package pathway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Condition is one clause of a rule's IF part. Clauses produced by the
// converter are boolean observations: param holds the full clause text,
// compared as "= true". The connector joins a clause to the next one and
// is empty on the last clause.
type Condition struct {
	Param     string `json:"param" bson:"param"`
	Operator  string `json:"operator" bson:"operator"`
	Value     string `json:"value" bson:"value"`
	Connector string `json:"connector" bson:"connector"`
}

// Action is one step of a rule's THEN part, ordered by sequence number.
type Action struct {
	Type     string `json:"type" bson:"type"`
	Target   string `json:"target" bson:"target"`
	Value    string `json:"value" bson:"value"`
	Sequence int    `json:"sequence" bson:"sequence"`
}

// StructuredRule is the structured record derived from a pathway, pairing
// the authoritative rule text with its parsed conditions and actions and a
// full snapshot of the source graph.
type StructuredRule struct {
	Text             string      `json:"text" bson:"text"`
	Conditions       []Condition `json:"conditions" bson:"conditions"`
	Actions          []Action    `json:"actions" bson:"actions"`
	IsComplex        bool        `json:"is_complex" bson:"is_complex"`
	Name             string      `json:"name" bson:"name"`
	Description      string      `json:"description" bson:"description"`
	CreatedDate      time.Time   `json:"created_date" bson:"created_date"`
	LastModifiedDate time.Time   `json:"last_modified_date" bson:"last_modified_date"`
	PathwayData      *Snapshot   `json:"pathway_data" bson:"pathway_data"`
}

// thenMarker separates the IF part from the THEN part in rule text. The
// structured converter re-parses the text on this exact marker, so the
// punctuation is part of the format.
const thenMarker = ",\nTHEN"

// RuleText converts the pathway into its textual IF/THEN form.
//
// Traversal starts from every node with no incoming connection. When the
// graph has no such node (for example, a pure cycle), problem nodes are
// used, and failing that the first two nodes in insertion order — an
// arbitrary but stable fallback so conversion always yields something.
// Each start node is walked depth-first along outgoing connections with a
// shared visited set, classifying nodes into condition clauses and action
// steps by type. Condition clauses are joined with " AND "; actions are
// numbered 1-based in visit order.
func (p *Pathway) RuleText() string {
	incoming := make(map[string]bool)
	for _, c := range p.conns {
		incoming[c.Target] = true
	}

	var starting []string
	for _, id := range p.order {
		if !incoming[id] {
			starting = append(starting, id)
		}
	}
	if len(starting) == 0 {
		for _, id := range p.order {
			if p.nodes[id].Type == TypeProblem {
				starting = append(starting, id)
			}
		}
	}
	if len(starting) == 0 {
		starting = p.order[:min(2, len(p.order))]
	}

	var conditions, actions []string
	visited := make(map[string]bool)
	for _, id := range starting {
		p.collectRuleParts(id, &conditions, &actions, visited)
	}

	var b strings.Builder
	b.WriteString("IF ")
	b.WriteString(strings.Join(conditions, " AND "))
	b.WriteString(thenMarker)
	for i, action := range actions {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, action)
	}
	return b.String()
}

// collectRuleParts visits a node and its reachable children, appending the
// node's clause to conditions or actions depending on its type. The visited
// set doubles as the cycle guard: a node contributes at most one clause no
// matter how many paths reach it.
func (p *Pathway) collectRuleParts(id string, conditions, actions *[]string, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	n, ok := p.nodes[id]
	if !ok {
		return
	}

	content := strings.TrimSpace(n.Content)
	if content == "" {
		content = fmt.Sprintf("[Empty %s]", titleCase(string(n.Type)))
	}

	switch n.Type {
	case TypeProblem:
		*conditions = append(*conditions, fmt.Sprintf("problem is '%s'", content))
	case TypeCheck:
		if checkType := n.CheckType(); checkType != "" {
			*conditions = append(*conditions, fmt.Sprintf("%s shows '%s'", checkType, content))
		} else {
			*conditions = append(*conditions, fmt.Sprintf("check shows '%s'", content))
		}
	case TypeCondition:
		if severity := n.Severity(); severity != "" {
			*conditions = append(*conditions, fmt.Sprintf("%s condition: %s", severity, content))
		} else {
			*conditions = append(*conditions, content)
		}
	case TypeAction:
		if impact := n.Impact(); impact != "" {
			*actions = append(*actions, fmt.Sprintf("%s: %s", impact, content))
		} else {
			*actions = append(*actions, content)
		}
	}

	for _, c := range p.conns {
		if c.Source == id {
			p.collectRuleParts(c.Target, conditions, actions, visited)
		}
	}
}

// StructuredRule converts the pathway into its structured rule record.
//
// The record is built by re-parsing the text from [Pathway.RuleText] rather
// than walking the graph a second time: the textual format stays the single
// source of truth and the two representations cannot drift apart. The cost
// is sensitivity to the exact punctuation — see thenMarker.
func (p *Pathway) StructuredRule() StructuredRule {
	text := p.RuleText()

	var conditions []Condition
	var actions []Action

	parts := strings.Split(text, thenMarker)
	if len(parts) == 2 {
		ifPart := strings.TrimSpace(strings.ReplaceAll(parts[0], "IF ", ""))
		thenPart := strings.TrimSpace(parts[1])

		for _, clause := range strings.Split(ifPart, " AND ") {
			conditions = append(conditions, Condition{
				Param:     clause,
				Operator:  "=",
				Value:     "true",
				Connector: "AND",
			})
		}
		if len(conditions) > 0 {
			conditions[len(conditions)-1].Connector = ""
		}

		for i, line := range strings.Split(thenPart, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			actions = append(actions, parseActionLine(line, i+1))
		}
	}

	snap := p.Snapshot()
	return StructuredRule{
		Text:             text,
		Conditions:       conditions,
		Actions:          actions,
		IsComplex:        true,
		Name:             p.Name,
		Description:      p.Description,
		CreatedDate:      p.CreatedDate,
		LastModifiedDate: p.LastModifiedDate,
		PathwayData:      &snap,
	}
}

// parseActionLine parses one THEN line of the form "<seq>. <text>". The
// fallback sequence is the line's position. A "<type>: <target>" prefix in
// the text overrides the default Apply type.
func parseActionLine(line string, fallbackSeq int) Action {
	seq := fallbackSeq
	text := line

	if line[0] >= '0' && line[0] <= '9' {
		if end := strings.Index(line, ". "); end > 0 {
			if n, err := strconv.Atoi(line[:end]); err == nil {
				seq = n
				text = line[end+2:]
			}
		}
	}

	action := Action{Type: "Apply", Target: text, Sequence: seq}
	if i := strings.Index(text, ": "); i >= 0 {
		action.Type = text[:i]
		action.Target = text[i+2:]
	}
	return action
}
