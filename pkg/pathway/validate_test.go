package pathway

import (
	"strings"
	"testing"
)

func TestValidateCleanPathway(t *testing.T) {
	p := New("test")
	problem := mustAdd(t, p, TypeProblem, "noise")
	check := mustAdd(t, p, TypeCheck, "inspect")
	action := mustAdd(t, p, TypeAction, "replace")
	p.Connect(problem.ID, check.ID)
	p.Connect(check.ID, action.ID)

	report := p.Validate()
	if !report.OK() {
		t.Errorf("expected clean report, got %+v", report)
	}
	if report.Count() != 0 {
		t.Errorf("Count = %d, want 0", report.Count())
	}
}

func TestValidateEmptyPathway(t *testing.T) {
	p := New("test")
	report := p.Validate()

	wantStructure := []string{"No problem statement defined", "No action steps defined"}
	for _, want := range wantStructure {
		found := false
		for _, issue := range report.Structure {
			if issue == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Structure missing %q, got %v", want, report.Structure)
		}
	}
}

func TestValidateNodeIssues(t *testing.T) {
	p := New("test")
	problem := mustAdd(t, p, TypeProblem, "")
	action := mustAdd(t, p, TypeAction, "fix")
	action.SetProperty(PropImpact, "")
	p.Connect(problem.ID, action.ID)

	report := p.Validate()
	if len(report.Nodes) != 2 {
		t.Fatalf("got %d node issues, want 2: %v", len(report.Nodes), report.Nodes)
	}
	if !strings.Contains(report.Nodes[0], "Node content is empty") {
		t.Errorf("issue = %q, want empty-content message", report.Nodes[0])
	}
	if !strings.Contains(report.Nodes[1], "Action impact is not specified") {
		t.Errorf("issue = %q, want missing-impact message", report.Nodes[1])
	}
	if !strings.HasPrefix(report.Nodes[0], "Node "+problem.ShortID()) {
		t.Errorf("issue = %q, want short-ID prefix", report.Nodes[0])
	}
}

func TestValidateDisconnectedNode(t *testing.T) {
	p := New("test")
	problem := mustAdd(t, p, TypeProblem, "noise")
	action := mustAdd(t, p, TypeAction, "fix")
	p.Connect(problem.ID, action.ID)
	orphan := mustAdd(t, p, TypeCheck, "lonely")

	report := p.Validate()
	if len(report.Connections) != 1 {
		t.Fatalf("got %d connection issues, want 1: %v", len(report.Connections), report.Connections)
	}
	want := "Check node " + orphan.ShortID() + " is disconnected"
	if report.Connections[0] != want {
		t.Errorf("issue = %q, want %q", report.Connections[0], want)
	}
}

func TestValidateDeadEnd(t *testing.T) {
	p := New("test")
	problem := mustAdd(t, p, TypeProblem, "noise")
	check := mustAdd(t, p, TypeCheck, "inspect")
	action := mustAdd(t, p, TypeAction, "fix")
	p.Connect(problem.ID, check.ID)
	p.Connect(problem.ID, action.ID)
	// check has no outgoing edge and is not an action.

	report := p.Validate()
	found := false
	for _, issue := range report.Structure {
		if strings.Contains(issue, "ends pathway without an action") && strings.Contains(issue, check.ShortID()) {
			found = true
		}
	}
	if !found {
		t.Errorf("Structure = %v, want dead-end issue for the check node", report.Structure)
	}

	// Actions are allowed to be terminal.
	for _, issue := range report.Structure {
		if strings.Contains(issue, action.ShortID()) {
			t.Errorf("terminal action flagged: %q", issue)
		}
	}
}

func TestValidateReportsCycles(t *testing.T) {
	p := New("test")
	problem := mustAdd(t, p, TypeProblem, "noise")
	check := mustAdd(t, p, TypeCheck, "inspect")
	action := mustAdd(t, p, TypeAction, "fix")
	p.Connect(problem.ID, check.ID)
	p.Connect(check.ID, problem.ID)
	p.Connect(check.ID, action.ID)

	report := p.Validate()
	found := false
	for _, issue := range report.Structure {
		if strings.Contains(issue, "cycle") {
			found = true
		}
	}
	if !found {
		t.Errorf("Structure = %v, want cycle issue", report.Structure)
	}
}

func TestValidateDeterministicOrder(t *testing.T) {
	p := New("test")
	for range 4 {
		mustAdd(t, p, TypeCheck, "")
	}

	first := p.Validate()
	for range 10 {
		again := p.Validate()
		for i := range first.Nodes {
			if again.Nodes[i] != first.Nodes[i] {
				t.Fatalf("node issue order changed: %v vs %v", first.Nodes, again.Nodes)
			}
		}
	}
}
