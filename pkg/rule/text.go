package rule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elicitlabs/elicit/pkg/pathway"
)

// thenMarker separates the IF part from the THEN part in rule text, shared
// with the pathway converter so both produce the same format.
const thenMarker = ",\nTHEN"

// conditionOperators in match order. Longer operators come first so ">="
// wins over both ">" and "=".
var conditionOperators = []string{"contains", ">=", "<=", "!=", "=", ">", "<"}

// actionTypes recognized by the parser, longest first.
var actionTypes = []string{"Replace", "Restart", "Contact", "Measure", "Adjust", "Apply", "Clean", "Check"}

// ComposeText rebuilds the rule text from its conditions and actions.
//
// A boolean condition (operator "=", value "true") renders as its bare
// param; anything else renders as "param operator value". Actions render in
// sequence order as "Type Target", with " to Value" appended when a value
// is set.
func (r *Rule) ComposeText() {
	var ifParts []string
	for i, c := range r.Conditions {
		if c.Operator == "=" && c.Value == "true" {
			ifParts = append(ifParts, c.Param)
		} else {
			ifParts = append(ifParts, fmt.Sprintf("%s %s %s", c.Param, c.Operator, c.Value))
		}
		if i < len(r.Conditions)-1 && c.Connector != "" {
			ifParts = append(ifParts, c.Connector)
		}
	}

	sorted := append([]pathway.Action(nil), r.Actions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	var b strings.Builder
	b.WriteString("IF ")
	b.WriteString(strings.Join(ifParts, " "))
	b.WriteString(thenMarker)
	for i, a := range sorted {
		text := fmt.Sprintf("%s %s", a.Type, a.Target)
		if a.Value != "" {
			text += " to " + a.Value
		}
		fmt.Fprintf(&b, "\n  %d. %s", i+1, text)
	}
	r.Text = b.String()
}

// ParseText parses the rule's text into structured conditions and actions,
// replacing the current ones. Returns false when the text does not have the
// IF/THEN shape; the rule is left unchanged in that case.
func (r *Rule) ParseText() bool {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return false
	}

	marker := thenMarker
	if !strings.Contains(text, marker) {
		// Single-line form used by hand-written rules.
		marker = ", THEN"
	}
	if !strings.Contains(text, "IF ") || !strings.Contains(text, marker) {
		return false
	}

	parts := strings.SplitN(text, marker, 2)
	ifPart := strings.Replace(parts[0], "IF ", "", 1)
	thenPart := strings.TrimSpace(parts[1])

	connector := "AND"
	clauses := strings.Split(ifPart, " AND ")
	if len(clauses) == 1 && strings.Contains(ifPart, " OR ") {
		connector = "OR"
		clauses = strings.Split(ifPart, " OR ")
	}

	var conditions []pathway.Condition
	for _, clause := range clauses {
		c, ok := parseCondition(clause)
		if !ok {
			continue
		}
		c.Connector = connector
		conditions = append(conditions, c)
	}
	if len(conditions) > 0 {
		conditions[len(conditions)-1].Connector = ""
	}

	var actions []pathway.Action
	for i, line := range strings.Split(thenPart, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		seq := i + 1
		actionText := line
		if line[0] >= '0' && line[0] <= '9' {
			if end := strings.Index(line, ". "); end > 0 {
				if n, err := strconv.Atoi(line[:end]); err == nil {
					seq = n
					actionText = line[end+2:]
				}
			}
		}
		actions = append(actions, parseAction(actionText, seq))
	}

	r.Conditions = conditions
	r.Actions = actions
	r.touch()
	return true
}

// parseCondition splits a clause on the first recognized operator. A clause
// with no operator is treated as a boolean observation ("param = true").
func parseCondition(text string) (pathway.Condition, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pathway.Condition{}, false
	}

	for _, op := range conditionOperators {
		if i := strings.Index(text, op); i >= 0 {
			return pathway.Condition{
				Param:    strings.TrimSpace(text[:i]),
				Operator: op,
				Value:    strings.TrimSpace(text[i+len(op):]),
			}, true
		}
	}

	return pathway.Condition{
		Param:    text,
		Operator: "=",
		Value:    "true",
	}, true
}

// parseAction extracts the action type, target, and optional " to <value>"
// suffix from one THEN line. Unrecognized types default to Apply.
func parseAction(text string, sequence int) pathway.Action {
	text = strings.TrimSpace(text)

	for _, at := range actionTypes {
		if strings.HasPrefix(text, at+" ") {
			rest := strings.TrimSpace(text[len(at):])
			target, value := rest, ""
			if i := strings.Index(rest, " to "); i >= 0 {
				target = strings.TrimSpace(rest[:i])
				value = strings.TrimSpace(rest[i+4:])
			}
			return pathway.Action{Type: at, Target: target, Value: value, Sequence: sequence}
		}
	}

	return pathway.Action{Type: "Apply", Target: text, Sequence: sequence}
}
