package rule

import (
	"strings"
	"testing"
	"time"

	"github.com/elicitlabs/elicit/pkg/pathway"
)

func buildPathway(t *testing.T) *pathway.Pathway {
	t.Helper()
	p := pathway.New("Bearing noise")
	problem, _ := p.AddNode(pathway.TypeProblem, nil)
	problem.Content = "Spindle makes grinding noise"
	check, _ := p.AddNode(pathway.TypeCheck, nil)
	check.Content = "Bearing play exceeds 0.05mm"
	action, _ := p.AddNode(pathway.TypeAction, nil)
	action.Content = "Replace spindle bearing"
	p.Connect(problem.ID, check.ID)
	p.Connect(check.ID, action.ID)
	return p
}

func TestNew(t *testing.T) {
	r := New("IF x,\nTHEN\n  1. y")

	if r.ID == "" {
		t.Error("ID not generated")
	}
	if !r.IsComplex {
		t.Error("IsComplex = false, want true")
	}
	if r.UseCount != 0 || r.LastUsed != nil {
		t.Error("usage statistics not zeroed")
	}
	if r.Metadata == nil {
		t.Error("Metadata not initialized")
	}
}

func TestFromPathway(t *testing.T) {
	p := buildPathway(t)
	r := FromPathway(p)

	if r.Text != p.RuleText() {
		t.Error("Text does not match the pathway's rule text")
	}
	if r.Name != "Bearing noise" {
		t.Errorf("Name = %q", r.Name)
	}
	if len(r.Conditions) != 2 || len(r.Actions) != 1 {
		t.Errorf("got %d conditions, %d actions", len(r.Conditions), len(r.Actions))
	}
	if r.PathwayData == nil || len(r.PathwayData.Nodes) != 3 {
		t.Error("pathway snapshot missing or incomplete")
	}
	if r.Kind() != KindPathway {
		t.Errorf("Kind = %s, want Pathway", r.Kind())
	}
}

func TestKind(t *testing.T) {
	plain := New("IF x,\nTHEN\n  1. y")
	if plain.Kind() != KindRule {
		t.Errorf("Kind = %s, want Rule", plain.Kind())
	}

	capture := New("IF x,\nTHEN\n  1. y")
	capture.Metadata["problem_type"] = "Mechanical"
	if capture.Kind() != KindCapture {
		t.Errorf("Kind = %s, want Capture", capture.Kind())
	}
}

func TestRecordUsage(t *testing.T) {
	r := New("")
	before := time.Now()
	r.RecordUsage()
	r.RecordUsage()

	if r.UseCount != 2 {
		t.Errorf("UseCount = %d, want 2", r.UseCount)
	}
	if r.LastUsed == nil || r.LastUsed.Before(before) {
		t.Error("LastUsed not stamped")
	}
}

func TestAddCondition(t *testing.T) {
	r := New("")
	r.AddCondition("pressure low", "", "", "")
	r.AddCondition("pump running", "", "", "")
	r.AddCondition("valve open", "", "", "OR")

	if len(r.Conditions) != 3 {
		t.Fatalf("got %d conditions, want 3", len(r.Conditions))
	}
	if r.Conditions[0].Connector != "AND" {
		t.Errorf("first connector = %q, want AND", r.Conditions[0].Connector)
	}
	if r.Conditions[1].Connector != "OR" {
		t.Errorf("second connector = %q, want OR", r.Conditions[1].Connector)
	}
	if r.Conditions[2].Connector != "" {
		t.Errorf("last connector = %q, want empty", r.Conditions[2].Connector)
	}
	if r.Conditions[0].Operator != "=" || r.Conditions[0].Value != "true" {
		t.Errorf("defaults not applied: %+v", r.Conditions[0])
	}
	if !strings.HasPrefix(r.Text, "IF pressure low") {
		t.Errorf("Text not recomposed: %q", r.Text)
	}
}

func TestAddActionSequencing(t *testing.T) {
	r := New("")
	r.AddAction("", "clean the filter", "", 0)
	r.AddAction("Adjust", "belt tension", "12Nm", 0)
	r.AddAction("Replace", "seal", "", 7)
	r.AddAction("", "test run", "", 0)

	wantSeq := []int{1, 2, 7, 8}
	for i, a := range r.Actions {
		if a.Sequence != wantSeq[i] {
			t.Errorf("action %d sequence = %d, want %d", i, a.Sequence, wantSeq[i])
		}
	}
	if r.Actions[0].Type != "Apply" {
		t.Errorf("default type = %q, want Apply", r.Actions[0].Type)
	}
}

func TestValidate(t *testing.T) {
	t.Run("Clean", func(t *testing.T) {
		r := New("")
		r.AddCondition("pressure low", "", "", "")
		r.AddAction("Check", "pump", "", 0)
		if rep := r.Validate(); !rep.OK() {
			t.Errorf("expected clean report, got %+v", rep)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		r := New("")
		rep := r.Validate()
		if rep.OK() {
			t.Fatal("empty rule passed validation")
		}
		hasIssue := func(issues []string, want string) bool {
			for _, issue := range issues {
				if issue == want {
					return true
				}
			}
			return false
		}
		if !hasIssue(rep.General, "Rule text is empty") {
			t.Errorf("General = %v", rep.General)
		}
		if !hasIssue(rep.Conditions, "No conditions defined") {
			t.Errorf("Conditions = %v", rep.Conditions)
		}
		if !hasIssue(rep.Actions, "No actions defined") {
			t.Errorf("Actions = %v", rep.Actions)
		}
	})

	t.Run("DuplicateSequence", func(t *testing.T) {
		r := New("")
		r.AddCondition("x", "", "", "")
		r.AddAction("Apply", "a", "", 1)
		r.AddAction("Apply", "b", "", 1)
		rep := r.Validate()
		found := false
		for _, issue := range rep.Actions {
			if strings.Contains(issue, "Duplicate sequence number 1") {
				found = true
			}
		}
		if !found {
			t.Errorf("Actions = %v, want duplicate-sequence issue", rep.Actions)
		}
	})

	t.Run("DanglingConnector", func(t *testing.T) {
		r := New("x")
		r.Conditions = []pathway.Condition{{Param: "x", Operator: "=", Value: "true", Connector: "AND"}}
		r.Actions = []pathway.Action{{Type: "Apply", Target: "y", Sequence: 1}}
		rep := r.Validate()
		found := false
		for _, issue := range rep.Conditions {
			if issue == "Last condition should not have a connector" {
				found = true
			}
		}
		if !found {
			t.Errorf("Conditions = %v", rep.Conditions)
		}
	})
}

func TestDuplicate(t *testing.T) {
	r := FromPathway(buildPathway(t))
	r.RecordUsage()

	dup := r.Duplicate()

	if dup.ID == r.ID {
		t.Error("duplicate kept the original ID")
	}
	if dup.Name != "Copy of Bearing noise" {
		t.Errorf("Name = %q", dup.Name)
	}
	if dup.UseCount != 0 || dup.LastUsed != nil {
		t.Error("usage statistics not reset")
	}
	if dup.Text != r.Text {
		t.Error("text not carried over")
	}

	dup.Conditions[0].Param = "changed"
	if r.Conditions[0].Param == "changed" {
		t.Error("duplicate shares condition storage with original")
	}
	dup.Metadata["k"] = "v"
	if _, ok := r.Metadata["k"]; ok {
		t.Error("duplicate shares metadata storage with original")
	}
}

func TestSummary(t *testing.T) {
	t.Run("PrefersName", func(t *testing.T) {
		r := New("IF x,\nTHEN\n  1. y")
		r.Name = "Spindle diagnosis"
		if got := r.Summary(80); got != "Spindle diagnosis" {
			t.Errorf("Summary = %q", got)
		}
	})

	t.Run("FallsBackToProblemStatement", func(t *testing.T) {
		r := FromPathway(buildPathway(t))
		r.Name = ""
		r.Description = ""
		if got := r.Summary(80); got != "Spindle makes grinding noise" {
			t.Errorf("Summary = %q, want the problem statement", got)
		}
	})

	t.Run("FallsBackToIfPart", func(t *testing.T) {
		r := New("IF pressure low,\nTHEN\n  1. Check pump")
		if got := r.Summary(80); got != "pressure low" {
			t.Errorf("Summary = %q, want the IF part", got)
		}
	})

	t.Run("Truncates", func(t *testing.T) {
		r := New("")
		r.Name = strings.Repeat("a", 100)
		got := r.Summary(10)
		if got != strings.Repeat("a", 10)+"..." {
			t.Errorf("Summary = %q", got)
		}
	})
}

func TestFormattedLastUsed(t *testing.T) {
	r := New("")
	if got := r.FormattedLastUsed(); got != "Never" {
		t.Errorf("FormattedLastUsed = %q, want Never", got)
	}
	when := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)
	r.LastUsed = &when
	if got := r.FormattedLastUsed(); got != "2025-03-14 09:26" {
		t.Errorf("FormattedLastUsed = %q", got)
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	r := FromPathway(buildPathway(t))
	r.RecordUsage()

	data, err := Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.ID != r.ID || decoded.Text != r.Text || decoded.UseCount != 1 {
		t.Error("fields not preserved")
	}
	if decoded.PathwayData == nil || len(decoded.PathwayData.Nodes) != 3 {
		t.Error("pathway snapshot not preserved")
	}
	if decoded.Kind() != KindPathway {
		t.Errorf("Kind = %s after round trip", decoded.Kind())
	}
}
