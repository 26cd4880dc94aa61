package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestAddOrdersMostRecentFirst(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "h.sqlite"))
	defer s.Close()

	s.Add(Entry{ID: "a", Title: "first", Text: "one"})
	s.Add(Entry{ID: "b", Title: "second", Text: "two"})

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != "b" || all[1].ID != "a" {
		t.Errorf("order = [%s %s], want [b a]", all[0].ID, all[1].ID)
	}
}

func TestAddAssignsIDWhenMissing(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "h.sqlite"))
	defer s.Close()

	e := s.Add(Entry{Title: "untitled", Text: "hello"})
	if e.ID == "" {
		t.Fatal("expected a generated id")
	}

	s.Remove(e.ID)
	if s.Len() != 0 {
		t.Errorf("len after remove = %d, want 0", s.Len())
	}
}

func TestEvictionAtCap(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "h.sqlite"))
	defer s.Close()

	for i := 0; i < MaxEntries+5; i++ {
		s.Add(Entry{ID: fmt.Sprintf("n%d", i), Text: "x"})
	}

	all := s.All()
	if len(all) != MaxEntries {
		t.Fatalf("len = %d, want %d", len(all), MaxEntries)
	}
	if all[0].ID != fmt.Sprintf("n%d", MaxEntries+4) {
		t.Errorf("head = %s, want newest", all[0].ID)
	}
	if all[MaxEntries-1].ID != "n5" {
		t.Errorf("tail = %s, want n5", all[MaxEntries-1].ID)
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "h.sqlite"))
	defer s.Close()

	for _, id := range []string{"a", "b", "c"} {
		s.Add(Entry{ID: id, Text: id})
	}

	s.Remove("b")

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != "c" || all[1].ID != "a" {
		t.Errorf("order = [%s %s], want [c a]", all[0].ID, all[1].ID)
	}
}

func TestRemoveUnknownIDIsNoop(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "h.sqlite"))
	defer s.Close()

	s.Add(Entry{ID: "a", Text: "x"})
	s.Remove("nope")
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.sqlite")

	s := Open(path)
	s.Add(Entry{ID: "a", Title: "kept", Text: "survives"})
	s.Add(Entry{ID: "b", Title: "newer", Text: "also"})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := Open(path)
	defer s2.Close()

	all := s2.All()
	if len(all) != 2 {
		t.Fatalf("reloaded len = %d, want 2", len(all))
	}
	if all[0].ID != "b" || all[1].ID != "a" {
		t.Errorf("reloaded order = [%s %s], want [b a]", all[0].ID, all[1].ID)
	}
	if all[1].Text != "survives" {
		t.Errorf("text = %q", all[1].Text)
	}
}

func TestBrokenDatabaseDegradesToMemory(t *testing.T) {
	// A directory where the db file should go makes sqlite fail.
	dir := t.TempDir()
	path := filepath.Join(dir, "h.sqlite")
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}

	s := Open(path)
	defer s.Close()

	s.Add(Entry{ID: "a", Text: "in memory only"})
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
