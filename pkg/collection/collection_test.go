package collection

import (
	"testing"
	"time"

	"github.com/elicitlabs/elicit/pkg/rule"
)

func newRule(name, text string) *rule.Rule {
	r := rule.New(text)
	r.Name = name
	return r
}

func TestNew(t *testing.T) {
	c := New("")
	if c.Name != DefaultName {
		t.Errorf("Name = %q, want %q", c.Name, DefaultName)
	}
	if c.ID == "" {
		t.Error("ID not generated")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}

	named := New("Milling machines")
	if named.Name != "Milling machines" {
		t.Errorf("Name = %q", named.Name)
	}
}

func TestAddUpdateRemove(t *testing.T) {
	c := New("test")
	r := newRule("r1", "IF x,\nTHEN\n  1. y")

	id := c.Add(r)
	if id != r.ID {
		t.Errorf("Add returned %q, want %q", id, r.ID)
	}
	if got, ok := c.Get(id); !ok || got != r {
		t.Error("Get did not return the added rule")
	}

	replacement := rule.New("IF a,\nTHEN\n  1. b")
	replacement.ID = r.ID
	if !c.Update(replacement) {
		t.Error("Update returned false for existing rule")
	}
	if got, _ := c.Get(id); got != replacement {
		t.Error("Update did not replace the rule")
	}

	stranger := rule.New("")
	if c.Update(stranger) {
		t.Error("Update returned true for unknown rule")
	}

	if !c.Remove(id) {
		t.Error("Remove returned false")
	}
	if c.Remove(id) {
		t.Error("second Remove returned true")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", c.Len())
	}
}

func TestAddSameIDKeepsPosition(t *testing.T) {
	c := New("test")
	a := newRule("a", "")
	b := newRule("b", "")
	c.Add(a)
	c.Add(b)

	replacement := newRule("a2", "")
	replacement.ID = a.ID
	c.Add(replacement)

	rules := c.Rules()
	if len(rules) != 2 {
		t.Fatalf("Len = %d, want 2", len(rules))
	}
	if rules[0].Name != "a2" || rules[1].Name != "b" {
		t.Errorf("order = [%s, %s], want [a2, b]", rules[0].Name, rules[1].Name)
	}
}

func TestRulesInsertionOrder(t *testing.T) {
	c := New("test")
	names := []string{"first", "second", "third"}
	for _, name := range names {
		c.Add(newRule(name, ""))
	}

	for i, r := range c.Rules() {
		if r.Name != names[i] {
			t.Errorf("Rules()[%d].Name = %q, want %q", i, r.Name, names[i])
		}
	}
}

func TestRecordUsage(t *testing.T) {
	c := New("test")
	r := newRule("r", "")
	c.Add(r)

	if !c.RecordUsage(r.ID) {
		t.Error("RecordUsage returned false")
	}
	if r.UseCount != 1 {
		t.Errorf("UseCount = %d, want 1", r.UseCount)
	}
	if c.RecordUsage("missing") {
		t.Error("RecordUsage returned true for unknown rule")
	}
}

func TestDuplicateRule(t *testing.T) {
	c := New("test")
	r := newRule("original", "IF x,\nTHEN\n  1. y")
	c.Add(r)

	newID, ok := c.DuplicateRule(r.ID)
	if !ok {
		t.Fatal("DuplicateRule returned false")
	}
	if newID == r.ID {
		t.Error("duplicate has the same ID")
	}
	dup, ok := c.Get(newID)
	if !ok {
		t.Fatal("duplicate not added to collection")
	}
	if dup.Name != "Copy of original" {
		t.Errorf("duplicate Name = %q", dup.Name)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	if _, ok := c.DuplicateRule("missing"); ok {
		t.Error("DuplicateRule returned true for unknown rule")
	}
}

func TestRecentlyAndFrequentlyUsed(t *testing.T) {
	c := New("test")
	never := newRule("never", "")
	old := newRule("old", "")
	recent := newRule("recent", "")
	heavy := newRule("heavy", "")
	c.Add(never)
	c.Add(old)
	c.Add(recent)
	c.Add(heavy)

	past := time.Now().Add(-time.Hour)
	now := time.Now()
	old.UseCount = 1
	old.LastUsed = &past
	recent.UseCount = 2
	recent.LastUsed = &now
	heavy.UseCount = 9
	heavy.LastUsed = &past

	recentRules := c.RecentlyUsed(2)
	if len(recentRules) != 2 {
		t.Fatalf("RecentlyUsed returned %d rules, want 2", len(recentRules))
	}
	if recentRules[0].Name != "recent" {
		t.Errorf("most recent = %q, want recent", recentRules[0].Name)
	}

	frequent := c.FrequentlyUsed(1)
	if len(frequent) != 1 || frequent[0].Name != "heavy" {
		t.Errorf("FrequentlyUsed = %v", frequent)
	}
}

func TestStats(t *testing.T) {
	c := New("test")
	a := newRule("a", "")
	b := newRule("b", "")
	d := newRule("d", "")
	c.Add(a)
	c.Add(b)
	c.Add(d)

	b.RecordUsage()
	d.RecordUsage()
	d.RecordUsage()

	stats := c.Stats()
	if stats.TotalRules != 3 {
		t.Errorf("TotalRules = %d, want 3", stats.TotalRules)
	}
	if stats.Usage.NeverUsed != 1 || stats.Usage.UsedOnce != 1 || stats.Usage.UsedMultiple != 1 {
		t.Errorf("Usage = %+v", stats.Usage)
	}
	if stats.RuleCountsByKind[rule.KindRule] != 3 {
		t.Errorf("RuleCountsByKind = %v", stats.RuleCountsByKind)
	}
	if stats.LatestUsage == nil {
		t.Error("LatestUsage not set")
	}
	if stats.EarliestRule == nil || stats.LatestRule == nil {
		t.Error("date range not set")
	}
}

func TestValidateAll(t *testing.T) {
	c := New("test")
	good := rule.New("")
	good.AddCondition("x", "", "", "")
	good.AddAction("Check", "pump", "", 0)
	bad := rule.New("")
	c.Add(good)
	c.Add(bad)

	results := c.ValidateAll()
	if len(results) != 1 {
		t.Fatalf("got %d reports, want 1", len(results))
	}
	if _, ok := results[bad.ID]; !ok {
		t.Error("invalid rule not reported")
	}
}

func TestExportImport(t *testing.T) {
	src := New("source")
	a := newRule("a", "IF x,\nTHEN\n  1. y")
	b := newRule("b", "IF p,\nTHEN\n  1. q")
	src.Add(a)
	src.Add(b)

	t.Run("ExportAll", func(t *testing.T) {
		payload := src.Export(nil)
		if payload.CollectionName != "source" {
			t.Errorf("CollectionName = %q", payload.CollectionName)
		}
		if len(payload.Rules) != 2 {
			t.Errorf("exported %d rules, want 2", len(payload.Rules))
		}
	})

	t.Run("ExportSelected", func(t *testing.T) {
		payload := src.Export([]string{a.ID, "missing"})
		if len(payload.Rules) != 1 {
			t.Errorf("exported %d rules, want 1", len(payload.Rules))
		}
	})

	t.Run("ImportAddsAndUpdates", func(t *testing.T) {
		dst := New("destination")
		existing := newRule("stale", "")
		existing.ID = a.ID
		dst.Add(existing)

		added, updated := dst.Import(src.Export(nil))
		if added != 1 || updated != 1 {
			t.Errorf("Import = (%d added, %d updated), want (1, 1)", added, updated)
		}
		got, _ := dst.Get(a.ID)
		if got.Name != "a" {
			t.Errorf("imported rule Name = %q, want a", got.Name)
		}
	})
}

func TestCollectionRoundTrip(t *testing.T) {
	c := New("Milling machines")
	c.Description = "shop floor diagnostics"
	for _, name := range []string{"z", "a", "m"} {
		c.Add(newRule(name, "IF x,\nTHEN\n  1. y"))
	}

	data, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if restored.ID != c.ID || restored.Name != c.Name || restored.Description != c.Description {
		t.Error("identity fields not preserved")
	}
	if restored.Len() != 3 {
		t.Errorf("Len = %d, want 3", restored.Len())
	}
	want := []string{"z", "a", "m"}
	for i, r := range restored.Rules() {
		if r.Name != want[i] {
			t.Errorf("Rules()[%d].Name = %q, want %q (listing order lost)", i, r.Name, want[i])
		}
	}
}
