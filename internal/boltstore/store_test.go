package boltstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/xianmud/internal/state"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves", "test.bolt"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadSlot(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveSlot("quicksave", []byte(`{"version":"2.0.0"}`)); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}
	got, err := s.LoadSlot("quicksave")
	if err != nil {
		t.Fatalf("LoadSlot() error = %v", err)
	}
	if string(got) != `{"version":"2.0.0"}` {
		t.Errorf("LoadSlot() = %s", got)
	}
	if at, err := s.SavedAt("quicksave"); err != nil || at.IsZero() {
		t.Errorf("SavedAt() = %v, %v", at, err)
	}
}

func TestMissingSlot(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.LoadSlot("nope"); !errors.Is(err, state.ErrSlotNotFound) {
		t.Errorf("LoadSlot() error = %v, want ErrSlotNotFound", err)
	}
	if err := s.DeleteSlot("nope"); !errors.Is(err, state.ErrSlotNotFound) {
		t.Errorf("DeleteSlot() error = %v, want ErrSlotNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)
	for _, slot := range []string{"c", "a", "b"} {
		if err := s.SaveSlot(slot, []byte("{}")); err != nil {
			t.Fatalf("SaveSlot(%s) error = %v", slot, err)
		}
	}

	slots, err := s.ListSlots()
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(slots) != 3 || slots[0] != "a" || slots[2] != "c" {
		t.Errorf("ListSlots() = %v, want [a b c]", slots)
	}

	if err := s.DeleteSlot("a"); err != nil {
		t.Fatalf("DeleteSlot() error = %v", err)
	}
	if slots, _ := s.ListSlots(); len(slots) != 2 {
		t.Errorf("ListSlots() after delete = %v", slots)
	}
}

func TestReopenKeepsSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SaveSlot("a", []byte("data")); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if got, err := s.LoadSlot("a"); err != nil || string(got) != "data" {
		t.Errorf("LoadSlot() after reopen = %q, %v", got, err)
	}
}

func TestManagerUsesStore(t *testing.T) {
	s := openTestStore(t)
	cfg := state.DefaultConfig()
	cfg.Store = s

	m := state.NewManager(cfg)
	m.SetLocation("青云山")
	if err := m.SaveSlot("q"); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}

	restored := state.NewManager(cfg)
	if err := restored.LoadSlot("q"); err != nil {
		t.Fatalf("LoadSlot() error = %v", err)
	}
	if got := restored.State().CurrentLocation; got != "青云山" {
		t.Errorf("location = %q, want 青云山", got)
	}
}
