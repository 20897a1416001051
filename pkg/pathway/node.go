package pathway

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// NodeType classifies a diagnostic step. The set is closed: every node in a
// pathway is one of problem, check, condition, or action, and the type
// determines both its layout column and how the rule converter renders it.
type NodeType string

// Valid node types.
const (
	TypeProblem   NodeType = "problem"
	TypeCheck     NodeType = "check"
	TypeCondition NodeType = "condition"
	TypeAction    NodeType = "action"
)

// ValidTypes is the set of accepted node types.
var ValidTypes = map[NodeType]bool{
	TypeProblem:   true,
	TypeCheck:     true,
	TypeCondition: true,
	TypeAction:    true,
}

// Property keys for type-specific node metadata.
const (
	PropCheckType     = "check_type"    // check nodes: how the check is performed
	PropSeverity      = "severity"      // condition nodes: severity level
	PropImpact        = "impact"        // action nodes: kind of intervention
	PropEffectiveness = "effectiveness" // action nodes: 1-5 score
)

// defaultProperties returns the starting metadata for each node type.
func defaultProperties(t NodeType) map[string]any {
	switch t {
	case TypeCheck:
		return map[string]any{PropCheckType: "Visual Inspection"}
	case TypeCondition:
		return map[string]any{PropSeverity: "Normal"}
	case TypeAction:
		return map[string]any{PropImpact: "Adjustment", PropEffectiveness: 3}
	default:
		return map[string]any{}
	}
}

// Position is a node's location on the authoring canvas.
type Position struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
}

// Node is a single diagnostic step in a pathway.
//
// The Connections slice records the IDs of nodes this node points to. It is
// kept consistent with the owning pathway's connection list by the pathway
// mutators; callers should use [Pathway.Connect] and [Pathway.Disconnect]
// rather than editing it directly.
type Node struct {
	ID          string         `json:"node_id" bson:"node_id"`
	Type        NodeType       `json:"node_type" bson:"node_type"`
	Content     string         `json:"content" bson:"content"`
	Connections []string       `json:"connections" bson:"connections"`
	Position    Position       `json:"position" bson:"position"`
	Properties  map[string]any `json:"properties,omitempty" bson:"properties,omitempty"`
}

// NewNode creates a node of the given type with a generated identifier and
// the type's default properties. Returns an error for unknown types.
func NewNode(t NodeType) (*Node, error) {
	if !ValidTypes[t] {
		return nil, fmt.Errorf("invalid node type: %q", t)
	}
	return &Node{
		ID:          uuid.NewString(),
		Type:        t,
		Connections: []string{},
		Properties:  defaultProperties(t),
	}, nil
}

// SetPosition moves the node to the given canvas coordinates.
func (n *Node) SetPosition(x, y int) {
	n.Position = Position{X: x, Y: y}
}

// AddConnection records an outgoing connection to the target node.
// Returns false if the connection is already recorded.
func (n *Node) AddConnection(targetID string) bool {
	if slices.Contains(n.Connections, targetID) {
		return false
	}
	n.Connections = append(n.Connections, targetID)
	return true
}

// RemoveConnection drops the recorded connection to the target node.
// Returns false if no such connection was recorded.
func (n *Node) RemoveConnection(targetID string) bool {
	i := slices.Index(n.Connections, targetID)
	if i < 0 {
		return false
	}
	n.Connections = slices.Delete(n.Connections, i, i+1)
	return true
}

// HasConnection reports whether the node records a connection to targetID.
func (n *Node) HasConnection(targetID string) bool {
	return slices.Contains(n.Connections, targetID)
}

// ClearConnections drops all recorded outgoing connections.
func (n *Node) ClearConnections() {
	n.Connections = []string{}
}

// SetProperty stores a metadata value on the node.
func (n *Node) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	n.Properties[key] = value
}

// Property returns a metadata value, or the zero any if not set.
func (n *Node) Property(key string) (any, bool) {
	v, ok := n.Properties[key]
	return v, ok
}

// stringProperty returns a property as a string for the given node type.
// Empty when the node has a different type or the property is unset.
func (n *Node) stringProperty(t NodeType, key string) string {
	if n.Type != t {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

// CheckType returns how a check node's check is performed.
// Empty for non-check nodes.
func (n *Node) CheckType() string { return n.stringProperty(TypeCheck, PropCheckType) }

// SetCheckType sets the check type. Ignored for non-check nodes.
func (n *Node) SetCheckType(checkType string) {
	if n.Type == TypeCheck {
		n.SetProperty(PropCheckType, checkType)
	}
}

// Severity returns a condition node's severity level.
// Empty for non-condition nodes.
func (n *Node) Severity() string { return n.stringProperty(TypeCondition, PropSeverity) }

// SetSeverity sets the severity level. Ignored for non-condition nodes.
func (n *Node) SetSeverity(severity string) {
	if n.Type == TypeCondition {
		n.SetProperty(PropSeverity, severity)
	}
}

// Impact returns an action node's impact classification.
// Empty for non-action nodes.
func (n *Node) Impact() string { return n.stringProperty(TypeAction, PropImpact) }

// SetImpact sets the impact classification. Ignored for non-action nodes.
func (n *Node) SetImpact(impact string) {
	if n.Type == TypeAction {
		n.SetProperty(PropImpact, impact)
	}
}

// Effectiveness returns an action node's 1-5 effectiveness score.
// The second return is false for non-action nodes or when unset.
// JSON decoding stores numbers as float64, so both forms are accepted.
func (n *Node) Effectiveness() (int, bool) {
	if n.Type != TypeAction {
		return 0, false
	}
	switch v := n.Properties[PropEffectiveness].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// SetEffectiveness sets the effectiveness score. Ignored for non-action nodes.
func (n *Node) SetEffectiveness(value int) {
	if n.Type == TypeAction {
		n.SetProperty(PropEffectiveness, value)
	}
}

// ChangeType switches the node to a new type, resetting its properties to
// the new type's defaults. Returns false for unknown types.
func (n *Node) ChangeType(t NodeType) bool {
	if !ValidTypes[t] {
		return false
	}
	n.Type = t
	n.Properties = defaultProperties(t)
	return true
}

// Validate checks the node for completeness and returns human-readable
// issues. An empty slice means the node is valid.
func (n *Node) Validate() []string {
	var issues []string

	if n.ID == "" {
		issues = append(issues, "Node ID is missing")
	}
	if n.Content == "" {
		issues = append(issues, "Node content is empty")
	}

	switch n.Type {
	case TypeCheck:
		if n.CheckType() == "" {
			issues = append(issues, "Check type is not specified")
		}
	case TypeCondition:
		if n.Severity() == "" {
			issues = append(issues, "Condition severity is not specified")
		}
	case TypeAction:
		if n.Impact() == "" {
			issues = append(issues, "Action impact is not specified")
		}
	}

	return issues
}

// Duplicate returns a copy of the node with a new identifier and no
// recorded connections. Connections are dropped because they reference the
// original's place in its pathway.
func (n *Node) Duplicate() *Node {
	props := make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	return &Node{
		ID:          uuid.NewString(),
		Type:        n.Type,
		Content:     n.Content,
		Connections: []string{},
		Position:    n.Position,
		Properties:  props,
	}
}

// ShortID returns the first 8 characters of the node ID, used in
// human-readable validation messages.
func (n *Node) ShortID() string {
	if len(n.ID) <= 8 {
		return n.ID
	}
	return n.ID[:8]
}

// String returns a compact description for logs.
func (n *Node) String() string {
	content := n.Content
	if len(content) > 30 {
		content = content[:30] + "..."
	}
	return fmt.Sprintf("%s (%s): %s", titleCase(string(n.Type)), n.ShortID(), content)
}

// titleCase upper-cases the first letter, matching the display form of node
// types in issue messages ("Check node 1a2b3c4d is disconnected").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
