package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/rule"
)

func sampleCollection() *collection.Collection {
	c := collection.New("Milling machines")
	r := rule.New("")
	r.Name = "Bearing noise"
	r.AddCondition("spindle makes grinding noise", "", "", "")
	r.AddAction("Replace", "spindle bearing", "", 0)
	c.Add(r)
	return c
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	t.Run("LoadEmpty", func(t *testing.T) {
		c, err := s.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if c.Len() != 0 {
			t.Errorf("Len = %d, want 0", c.Len())
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		saved := sampleCollection()
		if err := s.Save(ctx, saved); err != nil {
			t.Fatal(err)
		}

		loaded, err := s.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.ID != saved.ID || loaded.Len() != 1 {
			t.Errorf("loaded ID=%s Len=%d", loaded.ID, loaded.Len())
		}
	})

	t.Run("LoadedCollectionIsIsolated", func(t *testing.T) {
		loaded, _ := s.Load(ctx)
		loaded.Add(rule.New(""))

		again, _ := s.Load(ctx)
		if again.Len() != 1 {
			t.Errorf("Len = %d, want 1 (mutating a loaded copy leaked into the store)", again.Len())
		}
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "collection.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	t.Run("LoadMissingFile", func(t *testing.T) {
		c, err := s.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if c.Len() != 0 {
			t.Errorf("Len = %d, want 0", c.Len())
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		saved := sampleCollection()
		if err := s.Save(ctx, saved); err != nil {
			t.Fatal(err)
		}

		loaded, err := s.Load(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.ID != saved.ID {
			t.Errorf("ID = %s, want %s", loaded.ID, saved.ID)
		}
		rules := loaded.Rules()
		if len(rules) != 1 || rules[0].Name != "Bearing noise" {
			t.Errorf("rules = %v", rules)
		}
	})

	t.Run("SaveWritesBackup", func(t *testing.T) {
		// First save wrote the file; second save must back it up.
		if err := s.Save(ctx, sampleCollection()); err != nil {
			t.Fatal(err)
		}
		backups, err := filepath.Glob(path + ".*.bak")
		if err != nil {
			t.Fatal(err)
		}
		if len(backups) == 0 {
			t.Error("no backup written on overwrite")
		}
	})

	t.Run("RapidSavesKeepDistinctBackups", func(t *testing.T) {
		// Saves within the same second must not clobber each other's
		// backup, so each overwrite adds one.
		before, _ := filepath.Glob(path + ".*.bak")
		for range 3 {
			if err := s.Save(ctx, sampleCollection()); err != nil {
				t.Fatal(err)
			}
		}
		after, _ := filepath.Glob(path + ".*.bak")
		if len(after) != len(before)+3 {
			t.Errorf("%d backups, want %d", len(after), len(before)+3)
		}
	})

	t.Run("RejectsTraversalPath", func(t *testing.T) {
		if _, err := NewFileStore("data/../../etc/collection.json"); err == nil {
			t.Error("expected error for traversal path")
		}
	})
}

func TestFileStoreDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := NewFileStore("")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, ".config", "elicit", "collection.json")
	if s.Path() != want {
		t.Errorf("Path() = %q, want %q", s.Path(), want)
	}
}

func TestFileStoreBackupRotation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "collection.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	c := sampleCollection()
	for range maxBackups + 5 {
		if err := s.Save(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := filepath.Glob(path + ".*.bak")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) > maxBackups {
		t.Errorf("%d backups on disk, want at most %d", len(backups), maxBackups)
	}
	for _, b := range backups {
		if !strings.HasSuffix(b, ".bak") {
			t.Errorf("unexpected backup name %s", b)
		}
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "collection.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx); err == nil {
		t.Error("expected error for corrupt file")
	}
}
