package pathway

import "slices"

// DetectCycles finds circular references in the pathway using depth-first
// search with a current-path stack and a global visited set.
//
// Each discovered cycle is the sub-path from the revisited node's first
// occurrence on the current path to the point of revisit. Every node roots
// a traversal at most once, so cycles reachable from several roots may be
// reported once per rooted traversal in rotated form; callers should treat
// a non-empty result as "at least one cycle" rather than an exhaustive
// unique enumeration.
//
// The same visited-set guard protects the rule converter from infinite
// recursion, so a cyclic pathway still converts, it just won't revisit.
func (p *Pathway) DetectCycles() [][]string {
	adjacency := make(map[string][]string, len(p.nodes))
	for id := range p.nodes {
		adjacency[id] = nil
	}
	for _, c := range p.conns {
		if _, ok := adjacency[c.Source]; ok {
			adjacency[c.Source] = append(adjacency[c.Source], c.Target)
		}
	}

	var cycles [][]string
	visited := make(map[string]bool, len(p.nodes))
	onPath := make(map[string]bool, len(p.nodes))

	var dfs func(id string, path []string)
	dfs = func(id string, path []string) {
		if onPath[id] {
			start := slices.Index(path, id)
			cycles = append(cycles, slices.Clone(path[start:]))
			return
		}
		if visited[id] {
			return
		}

		visited[id] = true
		onPath[id] = true
		path = append(path, id)

		for _, next := range adjacency[id] {
			dfs(next, slices.Clone(path))
		}

		onPath[id] = false
	}

	for _, id := range p.order {
		if !visited[id] {
			dfs(id, nil)
		}
	}

	return cycles
}
