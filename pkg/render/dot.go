// Package render turns diagnostic pathways into visual diagrams.
//
// # Overview
//
// Pathways render as left-to-right flow diagrams: problems, checks,
// conditions, and actions each get a color-coded column, with arrows
// following the pathway's connections. The pipeline is DOT first, pixels
// second:
//
//	dot := render.ToDOT(p, render.Options{})
//	svg, err := render.SVG(dot)
//
// # Dependencies
//
// SVG rendering uses [github.com/goccy/go-graphviz] in process. PNG
// conversion requires librsvg (rsvg-convert).
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/elicitlabs/elicit/pkg/pathway"
)

// fillColors maps each node type to its diagram color.
var fillColors = map[pathway.NodeType]string{
	pathway.TypeProblem:   "#f4cccc",
	pathway.TypeCheck:     "#cfe2f3",
	pathway.TypeCondition: "#fff2cc",
	pathway.TypeAction:    "#d9ead3",
}

// Options configures pathway diagram rendering.
type Options struct {
	// Detailed includes type-specific metadata (check type, severity,
	// impact, effectiveness) in node labels. When false, only the node
	// content is shown.
	Detailed bool

	// Title overrides the diagram label. Defaults to the pathway name.
	Title string
}

// ToDOT converts a pathway to Graphviz DOT format. The resulting DOT
// string can be rendered with [SVG] or [PNG], or saved for external
// Graphviz tooling.
//
// Nodes of the same type share a rank, so the diagram reads left to right
// through the diagnostic columns the layout engine uses.
func ToDOT(p *pathway.Pathway, opts Options) string {
	title := opts.Title
	if title == "" {
		title = p.Name
	}

	var buf bytes.Buffer
	buf.WriteString("digraph pathway {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  label=%q;\n", title)
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.7;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, id := range p.NodeIDs() {
		n, ok := p.Node(id)
		if !ok {
			continue
		}
		label := nodeLabel(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q];\n", n.ID, label, fillColors[n.Type])
	}

	// One rank per column keeps the diagram's columns aligned with the
	// canvas layout.
	for _, t := range []pathway.NodeType{pathway.TypeProblem, pathway.TypeCheck, pathway.TypeCondition, pathway.TypeAction} {
		var ids []string
		for _, id := range p.NodeIDs() {
			if n, ok := p.Node(id); ok && n.Type == t {
				ids = append(ids, fmt.Sprintf("%q", id))
			}
		}
		if len(ids) > 1 {
			fmt.Fprintf(&buf, "  { rank=same; %s }\n", strings.Join(ids, "; "))
		}
	}

	buf.WriteString("\n")
	for _, c := range p.Connections() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", c.Source, c.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeLabel builds the display label for one node.
func nodeLabel(n *pathway.Node, detailed bool) string {
	content := strings.TrimSpace(n.Content)
	if content == "" {
		content = "(empty)"
	}

	if !detailed {
		return content
	}

	var parts []string
	switch n.Type {
	case pathway.TypeCheck:
		if ct := n.CheckType(); ct != "" {
			parts = append(parts, "check: "+ct)
		}
	case pathway.TypeCondition:
		if sev := n.Severity(); sev != "" {
			parts = append(parts, "severity: "+sev)
		}
	case pathway.TypeAction:
		if impact := n.Impact(); impact != "" {
			parts = append(parts, "impact: "+impact)
		}
		if eff, ok := n.Effectiveness(); ok {
			parts = append(parts, fmt.Sprintf("effectiveness: %d/5", eff))
		}
	}

	if len(parts) == 0 {
		return content
	}
	return content + "\n" + strings.Join(parts, "\n")
}
