package pathway

import (
	"testing"
	"time"
)

func mustAdd(t *testing.T, p *Pathway, nt NodeType, content string) *Node {
	t.Helper()
	n, err := p.AddNode(nt, nil)
	if err != nil {
		t.Fatalf("AddNode(%s): %v", nt, err)
	}
	n.Content = content
	return n
}

func TestNew(t *testing.T) {
	p := New("Bearing noise")

	if p.ID == "" {
		t.Error("ID is empty")
	}
	if p.Name != "Bearing noise" {
		t.Errorf("Name = %q, want %q", p.Name, "Bearing noise")
	}
	if p.NodeCount() != 0 || p.ConnectionCount() != 0 {
		t.Errorf("new pathway not empty: %d nodes, %d connections", p.NodeCount(), p.ConnectionCount())
	}
	if p.Layout != DefaultLayoutSettings() {
		t.Errorf("Layout = %+v, want defaults", p.Layout)
	}
	if p.CreatedDate.IsZero() || p.LastModifiedDate.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestAddNode(t *testing.T) {
	t.Run("GeneratesID", func(t *testing.T) {
		p := New("test")
		a := mustAdd(t, p, TypeProblem, "a")
		b := mustAdd(t, p, TypeProblem, "b")
		if a.ID == b.ID {
			t.Error("node IDs not unique")
		}
	})

	t.Run("InvalidType", func(t *testing.T) {
		p := New("test")
		if _, err := p.AddNode("widget", nil); err == nil {
			t.Error("expected error for invalid type")
		}
		if p.NodeCount() != 0 {
			t.Error("invalid node was added")
		}
	})

	t.Run("ExplicitPosition", func(t *testing.T) {
		p := New("test")
		n, err := p.AddNode(TypeCheck, &Position{X: 300, Y: 400})
		if err != nil {
			t.Fatal(err)
		}
		if n.Position != (Position{X: 300, Y: 400}) {
			t.Errorf("Position = %+v, want {300 400}", n.Position)
		}
	})

	t.Run("TypeDefaults", func(t *testing.T) {
		p := New("test")
		check := mustAdd(t, p, TypeCheck, "c")
		if got := check.CheckType(); got != "Visual Inspection" {
			t.Errorf("CheckType = %q, want Visual Inspection", got)
		}
		action := mustAdd(t, p, TypeAction, "a")
		if got := action.Impact(); got != "Adjustment" {
			t.Errorf("Impact = %q, want Adjustment", got)
		}
		if eff, ok := action.Effectiveness(); !ok || eff != 3 {
			t.Errorf("Effectiveness = %d, %v, want 3, true", eff, ok)
		}
	})

	t.Run("UpdatesModificationTime", func(t *testing.T) {
		p := New("test")
		before := p.LastModifiedDate
		time.Sleep(time.Millisecond)
		mustAdd(t, p, TypeProblem, "p")
		if !p.LastModifiedDate.After(before) {
			t.Error("LastModifiedDate not advanced by AddNode")
		}
	})
}

func TestRemoveNode(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		p := New("test")
		if p.RemoveNode("nope") {
			t.Error("RemoveNode of missing node returned true")
		}
	})

	t.Run("PrunesConnections", func(t *testing.T) {
		p := New("test")
		a := mustAdd(t, p, TypeProblem, "a")
		b := mustAdd(t, p, TypeCheck, "b")
		c := mustAdd(t, p, TypeAction, "c")
		p.Connect(a.ID, b.ID)
		p.Connect(b.ID, c.ID)
		p.Connect(a.ID, c.ID)

		if !p.RemoveNode(b.ID) {
			t.Fatal("RemoveNode returned false")
		}

		if _, ok := p.Node(b.ID); ok {
			t.Error("node still present after removal")
		}
		for _, conn := range p.Connections() {
			if conn.Source == b.ID || conn.Target == b.ID {
				t.Errorf("stale connection %v", conn)
			}
		}
		if a.HasConnection(b.ID) {
			t.Error("source node still records connection to removed node")
		}
		if !a.HasConnection(c.ID) {
			t.Error("unrelated connection was pruned")
		}
	})
}

func TestConnect(t *testing.T) {
	p := New("test")
	a := mustAdd(t, p, TypeProblem, "a")
	b := mustAdd(t, p, TypeCheck, "b")

	tests := []struct {
		name   string
		source string
		target string
		want   bool
	}{
		{"Valid", a.ID, b.ID, true},
		{"Duplicate", a.ID, b.ID, false},
		{"ReverseIsDistinct", b.ID, a.ID, true},
		{"MissingSource", "nope", b.ID, false},
		{"MissingTarget", a.ID, "nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Connect(tt.source, tt.target); got != tt.want {
				t.Errorf("Connect(%s, %s) = %v, want %v", tt.source, tt.target, got, tt.want)
			}
		})
	}

	if !a.HasConnection(b.ID) {
		t.Error("source node does not record the connection")
	}
}

func TestDisconnect(t *testing.T) {
	p := New("test")
	a := mustAdd(t, p, TypeProblem, "a")
	b := mustAdd(t, p, TypeCheck, "b")
	p.Connect(a.ID, b.ID)

	if p.Disconnect(b.ID, a.ID) {
		t.Error("Disconnect of absent reverse pair returned true")
	}
	if !p.Disconnect(a.ID, b.ID) {
		t.Error("Disconnect returned false")
	}
	if p.ConnectionCount() != 0 {
		t.Error("connection list not empty after disconnect")
	}
	if a.HasConnection(b.ID) {
		t.Error("source node still records removed connection")
	}
	if p.Disconnect(a.ID, b.ID) {
		t.Error("second Disconnect returned true")
	}
}

func TestNodesByType(t *testing.T) {
	p := New("test")
	mustAdd(t, p, TypeProblem, "p1")
	mustAdd(t, p, TypeCheck, "c1")
	mustAdd(t, p, TypeCheck, "c2")

	if got := len(p.NodesByType(TypeCheck)); got != 2 {
		t.Errorf("checks = %d, want 2", got)
	}
	if got := len(p.NodesByType(TypeAction)); got != 0 {
		t.Errorf("actions = %d, want 0", got)
	}
}

func TestClear(t *testing.T) {
	p := New("test")
	a := mustAdd(t, p, TypeProblem, "a")
	b := mustAdd(t, p, TypeAction, "b")
	p.Connect(a.ID, b.ID)

	id, layout := p.ID, p.Layout
	p.Clear()

	if p.NodeCount() != 0 || p.ConnectionCount() != 0 {
		t.Error("Clear left nodes or connections")
	}
	if p.ID != id {
		t.Error("Clear changed pathway identity")
	}
	if p.Layout != layout {
		t.Error("Clear changed layout settings")
	}
}

func TestDuplicate(t *testing.T) {
	p := New("Bearing noise")
	p.Description = "spindle diagnosis"
	a := mustAdd(t, p, TypeProblem, "noise")
	b := mustAdd(t, p, TypeAction, "replace bearing")
	p.Connect(a.ID, b.ID)

	dup := p.Duplicate()

	if dup.ID == p.ID {
		t.Error("duplicate kept the original ID")
	}
	if dup.Name != "Copy of Bearing noise" {
		t.Errorf("Name = %q, want Copy of Bearing noise", dup.Name)
	}
	if dup.NodeCount() != 2 || dup.ConnectionCount() != 1 {
		t.Errorf("duplicate has %d nodes, %d connections", dup.NodeCount(), dup.ConnectionCount())
	}

	// Deep copy: mutating the duplicate must not touch the original.
	dupNode, ok := dup.Node(a.ID)
	if !ok {
		t.Fatal("duplicate lost node ID")
	}
	dupNode.Content = "changed"
	if orig, _ := p.Node(a.ID); orig.Content != "noise" {
		t.Error("duplicate shares node storage with original")
	}
}

func TestPutNodeOverwrites(t *testing.T) {
	p := New("test")
	n := mustAdd(t, p, TypeCheck, "original")

	replacement, _ := NewNode(TypeCheck)
	replacement.ID = n.ID
	replacement.Content = "replacement"
	p.PutNode(replacement)

	if p.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", p.NodeCount())
	}
	got, _ := p.Node(n.ID)
	if got.Content != "replacement" {
		t.Errorf("Content = %q, want replacement", got.Content)
	}
	if len(p.NodeIDs()) != 1 {
		t.Errorf("NodeIDs = %v, want single entry", p.NodeIDs())
	}
}

func TestRoundTrip(t *testing.T) {
	p := New("Bearing noise")
	p.Description = "spindle"
	a := mustAdd(t, p, TypeProblem, "noise")
	b := mustAdd(t, p, TypeCheck, "play")
	c := mustAdd(t, p, TypeAction, "replace")
	c.SetEffectiveness(5)
	p.Connect(a.ID, b.ID)
	p.Connect(b.ID, c.ID)

	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	restored, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if restored.ID != p.ID || restored.Name != p.Name || restored.Description != p.Description {
		t.Error("identity fields not preserved")
	}
	if restored.NodeCount() != 3 || restored.ConnectionCount() != 2 {
		t.Errorf("restored %d nodes, %d connections", restored.NodeCount(), restored.ConnectionCount())
	}

	gotIDs := restored.NodeIDs()
	wantIDs := p.NodeIDs()
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("node order not preserved: got %v, want %v", gotIDs, wantIDs)
		}
	}

	action, _ := restored.Node(c.ID)
	if eff, ok := action.Effectiveness(); !ok || eff != 5 {
		t.Errorf("Effectiveness = %d, %v, want 5, true", eff, ok)
	}

	if restored.RuleText() != p.RuleText() {
		t.Error("rule text differs after round trip")
	}
}

func TestFromSnapshotReconcilesNodeConnections(t *testing.T) {
	// Older payloads tracked edges only in the connection list.
	snap := Snapshot{
		ID:   "pw-1",
		Name: "legacy",
		Nodes: map[string]*Node{
			"n1": {ID: "n1", Type: TypeProblem, Content: "a", Connections: []string{}},
			"n2": {ID: "n2", Type: TypeAction, Content: "b", Connections: []string{}},
		},
		NodeOrder:   []string{"n1", "n2"},
		Connections: []Connection{{Source: "n1", Target: "n2"}},
	}

	p, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	n1, _ := p.Node("n1")
	if !n1.HasConnection("n2") {
		t.Error("source node's outgoing set not reconciled from connection list")
	}
}

func TestFromSnapshotInvalidType(t *testing.T) {
	snap := Snapshot{
		ID:        "pw-1",
		Nodes:     map[string]*Node{"n1": {ID: "n1", Type: "widget"}},
		NodeOrder: []string{"n1"},
	}
	if _, err := FromSnapshot(snap); err == nil {
		t.Error("expected error for invalid node type")
	}
}
