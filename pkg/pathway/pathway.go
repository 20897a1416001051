package pathway

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Connection is a directed edge between two nodes, identified by their IDs.
// Connections carry no weight; the pair itself is the whole edge.
type Connection struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
}

// Pathway is a mutable directed graph of diagnostic steps. A technician
// builds a pathway by adding typed nodes (problem, check, condition, action)
// and connecting them; the pathway can then be converted into an IF/THEN
// rule, validated, or laid out for display.
//
// The connection list preserves insertion order, not any topological order.
// Pathway is not safe for concurrent use without external synchronization.
type Pathway struct {
	ID          string
	Name        string
	Description string

	CreatedDate      time.Time
	LastModifiedDate time.Time

	Layout LayoutSettings

	nodes map[string]*Node
	order []string // node IDs in insertion order
	conns []Connection
}

// New creates an empty pathway with a generated identifier, fresh
// timestamps, and the default layout settings.
func New(name string) *Pathway {
	now := time.Now()
	return &Pathway{
		ID:               uuid.NewString(),
		Name:             name,
		CreatedDate:      now,
		LastModifiedDate: now,
		Layout:           DefaultLayoutSettings(),
		nodes:            make(map[string]*Node),
	}
}

// touch records a successful mutation. The modification timestamp never
// lags behind the last mutating call.
func (p *Pathway) touch() {
	p.LastModifiedDate = time.Now()
}

// AddNode creates a node of the given type and adds it to the pathway.
// When pos is nil the layout engine places the node at the bottom of its
// type's column. Returns an error only for unknown node types.
func (p *Pathway) AddNode(t NodeType, pos *Position) (*Node, error) {
	node, err := NewNode(t)
	if err != nil {
		return nil, err
	}

	if pos != nil {
		node.SetPosition(pos.X, pos.Y)
	} else {
		calculated := p.CalculatePosition(t)
		node.SetPosition(calculated.X, calculated.Y)
	}

	p.PutNode(node)
	return node, nil
}

// PutNode inserts a node, overwriting any existing node with the same ID.
// An overwrite keeps the node's place in iteration order.
func (p *Pathway) PutNode(n *Node) {
	if _, exists := p.nodes[n.ID]; !exists {
		p.order = append(p.order, n.ID)
	}
	p.nodes[n.ID] = n
	p.touch()
}

// Node returns the node with the given ID, or false if absent.
func (p *Pathway) Node(id string) (*Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// RemoveNode deletes a node and prunes every connection touching it, in
// both the pathway's connection list and the recorded outgoing sets of the
// remaining nodes. Returns false if the node does not exist.
func (p *Pathway) RemoveNode(id string) bool {
	if _, ok := p.nodes[id]; !ok {
		return false
	}

	delete(p.nodes, id)
	if i := slices.Index(p.order, id); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}

	p.conns = slices.DeleteFunc(p.conns, func(c Connection) bool {
		return c.Source == id || c.Target == id
	})

	for _, n := range p.nodes {
		n.RemoveConnection(id)
	}

	p.touch()
	return true
}

// Connect creates a directed connection from source to target. Returns
// false without mutating when either endpoint is missing or the ordered
// pair already exists.
func (p *Pathway) Connect(sourceID, targetID string) bool {
	source, ok := p.nodes[sourceID]
	if !ok {
		return false
	}
	if _, ok := p.nodes[targetID]; !ok {
		return false
	}
	if slices.Contains(p.conns, (Connection{Source: sourceID, Target: targetID})) {
		return false
	}

	p.conns = append(p.conns, Connection{Source: sourceID, Target: targetID})
	source.AddConnection(targetID)
	p.touch()
	return true
}

// Disconnect removes the connection from source to target. Returns false
// if the pair is not present.
func (p *Pathway) Disconnect(sourceID, targetID string) bool {
	i := slices.Index(p.conns, Connection{Source: sourceID, Target: targetID})
	if i < 0 {
		return false
	}

	p.conns = slices.Delete(p.conns, i, i+1)
	if source, ok := p.nodes[sourceID]; ok {
		source.RemoveConnection(targetID)
	}
	p.touch()
	return true
}

// Nodes returns the node store keyed by ID. The map is the live store;
// treat it as read-only and mutate through the pathway methods.
func (p *Pathway) Nodes() map[string]*Node {
	return p.nodes
}

// NodeIDs returns node IDs in insertion order.
func (p *Pathway) NodeIDs() []string {
	return slices.Clone(p.order)
}

// NodesByType returns the nodes of the given type keyed by ID.
func (p *Pathway) NodesByType(t NodeType) map[string]*Node {
	result := make(map[string]*Node)
	for id, n := range p.nodes {
		if n.Type == t {
			result[id] = n
		}
	}
	return result
}

// nodesOfType returns nodes of the given type in insertion order.
func (p *Pathway) nodesOfType(t NodeType) []*Node {
	var result []*Node
	for _, id := range p.order {
		if n := p.nodes[id]; n.Type == t {
			result = append(result, n)
		}
	}
	return result
}

// Connections returns a copy of the connection list in insertion order.
func (p *Pathway) Connections() []Connection {
	return slices.Clone(p.conns)
}

// NodeCount returns the number of nodes in the pathway.
func (p *Pathway) NodeCount() int { return len(p.nodes) }

// ConnectionCount returns the number of connections in the pathway.
func (p *Pathway) ConnectionCount() int { return len(p.conns) }

// Clear drops all nodes and connections while keeping the pathway's
// identity, name, and layout settings.
func (p *Pathway) Clear() {
	p.nodes = make(map[string]*Node)
	p.order = nil
	p.conns = nil
	p.touch()
}

// Duplicate returns a deep copy of the pathway with a new identifier and
// fresh timestamps. The copy's name is prefixed with "Copy of" when the
// original has a name. Node identifiers are preserved so the copied
// connections stay valid.
func (p *Pathway) Duplicate() *Pathway {
	snap := p.Snapshot()
	snap.ID = uuid.NewString()
	now := time.Now()
	snap.CreatedDate = now
	snap.LastModifiedDate = now
	if p.Name != "" {
		snap.Name = "Copy of " + p.Name
	}
	dup, _ := FromSnapshot(snap)
	return dup
}
