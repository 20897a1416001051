// Package pathway implements the diagnostic pathway model: a mutable
// directed graph of troubleshooting steps that converts into an IF/THEN
// diagnostic rule.
//
// # Overview
//
// A pathway holds typed nodes (problem, check, condition, action) and
// directed connections between them. Callers build and edit the graph
// through the mutators, then ask for one of three derived views:
//
//   - RuleText: the textual "IF ... THEN ..." form of the pathway
//   - StructuredRule: the parsed conditions/actions record plus a graph snapshot
//   - Validate: a categorized report of structural and content issues
//
// # Building a pathway
//
//	p := pathway.New("Bearing noise")
//	problem, _ := p.AddNode(pathway.TypeProblem, nil)
//	problem.Content = "Spindle makes grinding noise"
//	check, _ := p.AddNode(pathway.TypeCheck, nil)
//	check.Content = "Bearing play exceeds 0.05mm"
//	action, _ := p.AddNode(pathway.TypeAction, nil)
//	action.Content = "Replace spindle bearing"
//	p.Connect(problem.ID, check.ID)
//	p.Connect(check.ID, action.ID)
//	fmt.Println(p.RuleText())
//
// # Layout
//
// Nodes are placed into fixed columns by type (problem, check, condition,
// action, left to right). AddNode stacks a new node below existing nodes of
// the same type; AutoLayout recomputes every position from scratch. The
// geometry constants are part of the format — two tools laying out the same
// pathway must produce the same coordinates.
//
// # Cycles
//
// Connections may form cycles while a pathway is being edited. DetectCycles
// reports them, validation counts them, and the rule converter guards its
// traversal with a visited set so conversion always terminates.
//
// # Serialization
//
// Snapshot is the canonical wire format (JSON for files and the HTTP API,
// BSON for MongoDB). Round-trips preserve node iteration order, positions,
// and all type-specific metadata.
package pathway
