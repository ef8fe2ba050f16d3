package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/xianmud/internal/state"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM saves").Scan(&count); err == nil {
		t.Error("Expected error querying closed database")
	}
}

func TestMigration_SavesTableSchema(t *testing.T) {
	db := openTestDB(t)

	for _, col := range []string{"slot", "version", "data", "saved_at"} {
		var exists int
		err := db.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('saves') WHERE name = ?", col).Scan(&exists)
		if err != nil {
			t.Fatalf("Failed to check column %s: %v", col, err)
		}
		if exists == 0 {
			t.Errorf("Column %s not found in saves table", col)
		}
	}
}

func TestMigration_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		db, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestSaveAndLoadSlot(t *testing.T) {
	db := openTestDB(t)

	data := []byte(`{"version":"2.0.0","state":{}}`)
	if err := db.SaveSlot("quicksave", data); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}

	got, err := db.LoadSlot("quicksave")
	if err != nil {
		t.Fatalf("LoadSlot() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("LoadSlot() = %s, want %s", got, data)
	}

	infos, err := db.SlotInfos()
	if err != nil {
		t.Fatalf("SlotInfos() error = %v", err)
	}
	if len(infos) != 1 || infos[0].Version != "2.0.0" {
		t.Errorf("SlotInfos() = %+v, want one slot at version 2.0.0", infos)
	}
	if infos[0].SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}
}

func TestSaveSlotOverwrites(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveSlot("a", []byte(`{"version":"1.0.0"}`)); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}
	if err := db.SaveSlot("a", []byte(`{"version":"2.0.0"}`)); err != nil {
		t.Fatalf("SaveSlot() overwrite error = %v", err)
	}

	got, err := db.LoadSlot("a")
	if err != nil {
		t.Fatalf("LoadSlot() error = %v", err)
	}
	if string(got) != `{"version":"2.0.0"}` {
		t.Errorf("LoadSlot() = %s, want the second save", got)
	}
	slots, _ := db.ListSlots()
	if len(slots) != 1 {
		t.Errorf("ListSlots() = %v, want one slot", slots)
	}
}

func TestLoadSlotNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LoadSlot("missing")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("LoadSlot() error = %v, want ErrSlotNotFound", err)
	}
	if !errors.Is(err, state.ErrSlotNotFound) {
		t.Error("ErrSlotNotFound should match the state package error")
	}
}

func TestListAndDeleteSlots(t *testing.T) {
	db := openTestDB(t)

	for _, slot := range []string{"b", "a", "c"} {
		if err := db.SaveSlot(slot, []byte("{}")); err != nil {
			t.Fatalf("SaveSlot(%s) error = %v", slot, err)
		}
	}

	slots, err := db.ListSlots()
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(slots) != len(want) {
		t.Fatalf("ListSlots() = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("ListSlots()[%d] = %q, want %q", i, slots[i], want[i])
		}
	}

	if err := db.DeleteSlot("b"); err != nil {
		t.Fatalf("DeleteSlot() error = %v", err)
	}
	if err := db.DeleteSlot("b"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("DeleteSlot() twice = %v, want ErrSlotNotFound", err)
	}
	if slots, _ := db.ListSlots(); len(slots) != 2 {
		t.Errorf("ListSlots() after delete = %v", slots)
	}
}

func TestSaveVersion(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`{"version":"2.0.0"}`, "2.0.0"},
		{`{"state":{}}`, ""},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := saveVersion([]byte(tt.data)); got != tt.want {
			t.Errorf("saveVersion(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestManagerRoundTrip(t *testing.T) {
	db := openTestDB(t)

	cfg := state.DefaultConfig()
	cfg.Store = db
	m := state.NewManager(cfg)
	m.SetFlag("visited", true)

	if err := m.SaveSlot("slot1"); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}

	restored := state.NewManager(cfg)
	if err := restored.LoadSlot("slot1"); err != nil {
		t.Fatalf("LoadSlot() error = %v", err)
	}
	if v, _ := restored.Flag("visited", false).(bool); !v {
		t.Error("flag did not survive the database round trip")
	}
}
