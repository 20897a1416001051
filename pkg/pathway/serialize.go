package pathway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"
)

// =============================================================================
// Snapshot - Pathway Serialization Format
// =============================================================================

// Snapshot is the canonical serialization format for pathways, used for
// storage, API responses, and the pathway_data payload on structured rules.
//
// The format is designed for round-trip fidelity: snapshot → restore →
// snapshot produces identical results. Node iteration order is carried in
// NodeOrder because JSON objects do not preserve it.
type Snapshot struct {
	ID               string           `json:"pathway_id" bson:"pathway_id"`
	Name             string           `json:"name" bson:"name"`
	Description      string           `json:"description" bson:"description"`
	CreatedDate      time.Time        `json:"created_date" bson:"created_date"`
	LastModifiedDate time.Time        `json:"last_modified_date" bson:"last_modified_date"`
	Layout           LayoutSettings   `json:"layout_settings" bson:"layout_settings"`
	Nodes            map[string]*Node `json:"nodes" bson:"nodes"`
	NodeOrder        []string         `json:"node_order,omitempty" bson:"node_order,omitempty"`
	Connections      []Connection     `json:"connections" bson:"connections"`
}

// Snapshot returns a deep copy of the pathway in its serialization format.
func (p *Pathway) Snapshot() Snapshot {
	nodes := make(map[string]*Node, len(p.nodes))
	for id, n := range p.nodes {
		copied := *n
		copied.Connections = slices.Clone(n.Connections)
		copied.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			copied.Properties[k] = v
		}
		nodes[id] = &copied
	}

	return Snapshot{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		CreatedDate:      p.CreatedDate,
		LastModifiedDate: p.LastModifiedDate,
		Layout:           p.Layout,
		Nodes:            nodes,
		NodeOrder:        slices.Clone(p.order),
		Connections:      slices.Clone(p.conns),
	}
}

// FromSnapshot reconstructs a pathway from its serialization format.
//
// Nodes are restored in NodeOrder when present, otherwise in sorted ID
// order for determinism. Connections recorded only in the connection list
// are reconciled onto the source nodes' outgoing sets, which tolerates
// payloads written by older tools that tracked edges in one place.
// Timestamps come from the snapshot; restoring is not a mutation.
func FromSnapshot(s Snapshot) (*Pathway, error) {
	p := New(s.Name)
	if s.ID != "" {
		p.ID = s.ID
	}
	p.Description = s.Description
	if s.Layout != (LayoutSettings{}) {
		p.Layout = s.Layout
	}

	order := s.NodeOrder
	if len(order) == 0 {
		order = slices.Sorted(maps.Keys(s.Nodes))
	}
	for _, id := range order {
		n, ok := s.Nodes[id]
		if !ok {
			continue
		}
		if !ValidTypes[n.Type] {
			return nil, fmt.Errorf("node %s: invalid node type %q", id, n.Type)
		}
		restored := *n
		restored.ID = id
		restored.Connections = slices.Clone(n.Connections)
		if restored.Properties == nil {
			restored.Properties = defaultProperties(n.Type)
		}
		p.PutNode(&restored)
	}

	for _, c := range s.Connections {
		p.conns = append(p.conns, c)
		if source, ok := p.nodes[c.Source]; ok && !source.HasConnection(c.Target) {
			source.AddConnection(c.Target)
		}
	}

	if !s.CreatedDate.IsZero() {
		p.CreatedDate = s.CreatedDate
	}
	if !s.LastModifiedDate.IsZero() {
		p.LastModifiedDate = s.LastModifiedDate
	}
	return p, nil
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts a pathway to pretty-printed JSON bytes.
func Marshal(p *Pathway) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(p, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a pathway as JSON to w.
func Write(p *Pathway, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Snapshot()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a JSON pathway from r.
func Read(r io.Reader) (*Pathway, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromSnapshot(s)
}

// Unmarshal decodes JSON bytes into a pathway.
func Unmarshal(data []byte) (*Pathway, error) {
	return Read(bytes.NewReader(data))
}

// WriteFile writes a pathway to a JSON file with 0644 permissions.
func WriteFile(p *Pathway, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(p, f)
}

// ReadFile reads a JSON file and returns the decoded pathway.
func ReadFile(path string) (*Pathway, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
