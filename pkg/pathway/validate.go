package pathway

import "fmt"

// Report aggregates validation issues across three categories. Each entry
// is a human-readable sentence suitable for direct display.
type Report struct {
	Nodes       []string `json:"nodes" bson:"nodes"`
	Connections []string `json:"connections" bson:"connections"`
	Structure   []string `json:"structure" bson:"structure"`
}

// OK reports whether the pathway passed validation with no issues.
func (r Report) OK() bool {
	return len(r.Nodes) == 0 && len(r.Connections) == 0 && len(r.Structure) == 0
}

// Count returns the total number of issues across all categories.
func (r Report) Count() int {
	return len(r.Nodes) + len(r.Connections) + len(r.Structure)
}

// Validate checks the pathway for completeness and correctness:
//
//   - nodes: each node's own content and metadata issues
//   - connections: nodes touched by no connection at either end
//   - structure: missing problem statement, missing actions, non-action
//     nodes that end the pathway, and detected cycles
//
// Issues are reported in node insertion order so repeated validation of an
// unchanged pathway yields an identical report.
func (p *Pathway) Validate() Report {
	var report Report

	for _, id := range p.order {
		node := p.nodes[id]
		for _, issue := range node.Validate() {
			report.Nodes = append(report.Nodes, fmt.Sprintf("Node %s: %s", node.ShortID(), issue))
		}
	}

	connected := make(map[string]bool)
	for _, c := range p.conns {
		connected[c.Source] = true
		connected[c.Target] = true
	}
	for _, id := range p.order {
		if !connected[id] {
			node := p.nodes[id]
			report.Connections = append(report.Connections,
				fmt.Sprintf("%s node %s is disconnected", titleCase(string(node.Type)), node.ShortID()))
		}
	}

	if len(p.NodesByType(TypeProblem)) == 0 {
		report.Structure = append(report.Structure, "No problem statement defined")
	}
	if len(p.NodesByType(TypeAction)) == 0 {
		report.Structure = append(report.Structure, "No action steps defined")
	}

	hasOutgoing := make(map[string]bool)
	for _, c := range p.conns {
		hasOutgoing[c.Source] = true
	}
	for _, id := range p.order {
		node := p.nodes[id]
		if !hasOutgoing[id] && node.Type != TypeAction {
			report.Structure = append(report.Structure,
				fmt.Sprintf("%s node %s ends pathway without an action", titleCase(string(node.Type)), node.ShortID()))
		}
	}

	if cycles := p.DetectCycles(); len(cycles) > 0 {
		report.Structure = append(report.Structure,
			fmt.Sprintf("Pathway contains %d cycle(s)", len(cycles)))
	}

	return report
}
