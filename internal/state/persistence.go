package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/logger"
)

// SaveVersion is written into every save envelope.
const SaveVersion = "2.0.0"

var (
	// ErrNoSnapshot is returned when restoring with no snapshot taken.
	ErrNoSnapshot = errors.New("no snapshot available")
	// ErrSnapshotIndex is returned for an index outside the snapshot ring.
	ErrSnapshotIndex = errors.New("snapshot index out of range")
	// ErrSlotNotFound is returned by slot stores for a missing slot.
	ErrSlotNotFound = errors.New("save slot not found")
	// ErrNoStore is returned by slot operations when no store is configured.
	ErrNoStore = errors.New("no save store configured")
)

// SlotStore persists encoded saves under slot names.
type SlotStore interface {
	SaveSlot(slot string, data []byte) error
	LoadSlot(slot string) ([]byte, error)
	ListSlots() ([]string, error)
	DeleteSlot(slot string) error
}

type envelope struct {
	Version      string        `json:"version"`
	Timestamp    time.Time     `json:"timestamp"`
	State        wireState     `json:"state"`
	ContextStack []ContextInfo `json:"context_stack"`
}

type snapshot struct {
	data      []byte
	timestamp time.Time
}

// Encode serializes the state and context stack into a save envelope.
func (m *Manager) Encode() ([]byte, error) {
	stack := m.stack
	if stack == nil {
		stack = []ContextInfo{}
	}
	env := envelope{
		Version:      SaveVersion,
		Timestamp:    m.now(),
		State:        m.state.toWire(m.CurrentCombat()),
		ContextStack: stack,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode replaces the state and context stack with a decoded envelope and
// publishes EventStateLoaded.
func (m *Manager) Decode(data []byte) error {
	if err := m.restore(data); err != nil {
		return err
	}
	m.publish(EventStateLoaded, map[string]any{})
	return nil
}

// restore applies an envelope without publishing.
func (m *Manager) restore(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if env.Version != SaveVersion {
		logger.Warning("Save version differs from runtime",
			"save_version", env.Version,
			"runtime_version", SaveVersion)
	}

	st := fromWire(env.State, m.cfg.StartingLocation)
	stack := make([]ContextInfo, 0, len(env.ContextStack))
	for _, c := range env.ContextStack {
		if c.Data == nil {
			c.Data = map[string]any{}
		}
		stack = append(stack, c)
	}

	m.state = st
	m.stack = stack

	// current_combat is informational; the stack decides.
	if saved := env.State.CurrentCombat; saved != nil && *saved != m.CurrentCombat() {
		logger.Warning("Saved combat reference disagrees with context stack",
			"saved", *saved,
			"derived", m.CurrentCombat())
	}
	return nil
}

// SaveState writes the envelope to path. The file is written to a temporary
// file in the same directory and renamed, so a failed save leaves any
// previous file intact.
func (m *Manager) SaveState(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("save state %s: %w", path, err)
	}
	m.lastAutoSave = m.now()
	logger.Info("Game state saved", "path", path)
	return nil
}

// LoadState replaces the state with the contents of path.
func (m *Manager) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load state %s: %w", path, err)
	}
	if err := m.restore(data); err != nil {
		return fmt.Errorf("load state %s: %w", path, err)
	}
	logger.Info("Game state loaded", "path", path)
	m.publish(EventStateLoaded, map[string]any{"filepath": path})
	return nil
}

// SaveSlot encodes the state into the configured store.
func (m *Manager) SaveSlot(slot string) error {
	if m.cfg.Store == nil {
		return ErrNoStore
	}
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := m.cfg.Store.SaveSlot(slot, data); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	m.lastAutoSave = m.now()
	logger.Info("Game state saved", "slot", slot)
	return nil
}

// LoadSlot replaces the state with a save from the configured store.
func (m *Manager) LoadSlot(slot string) error {
	if m.cfg.Store == nil {
		return ErrNoStore
	}
	data, err := m.cfg.Store.LoadSlot(slot)
	if err != nil {
		return fmt.Errorf("load slot %s: %w", slot, err)
	}
	if err := m.restore(data); err != nil {
		return fmt.Errorf("load slot %s: %w", slot, err)
	}
	logger.Info("Game state loaded", "slot", slot)
	m.publish(EventStateLoaded, map[string]any{"slot": slot})
	return nil
}

// CheckAutoSave saves to the auto-save slot once the interval has elapsed
// since the last save. It only runs when called; there is no timer.
func (m *Manager) CheckAutoSave() (bool, error) {
	if m.cfg.AutoSaveInterval <= 0 || m.cfg.Store == nil {
		return false, nil
	}
	if m.now().Sub(m.lastAutoSave) < m.cfg.AutoSaveInterval {
		return false, nil
	}
	if err := m.SaveSlot(m.cfg.AutoSaveSlot); err != nil {
		return false, err
	}
	return true, nil
}

// CreateSnapshot records an in-memory copy of the state. The oldest copy is
// dropped once the ring is full.
func (m *Manager) CreateSnapshot() error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	m.snapshots = append(m.snapshots, snapshot{data: data, timestamp: m.now()})
	if n := len(m.snapshots); n > m.cfg.MaxSnapshots {
		m.snapshots = append([]snapshot(nil), m.snapshots[n-m.cfg.MaxSnapshots:]...)
	}
	return nil
}

// RestoreSnapshot restores a snapshot. Negative indexes count from the end,
// so -1 is the newest.
func (m *Manager) RestoreSnapshot(index int) error {
	n := len(m.snapshots)
	if n == 0 {
		return ErrNoSnapshot
	}
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d of %d", ErrSnapshotIndex, index, n)
	}
	snap := m.snapshots[index]
	if err := m.restore(snap.data); err != nil {
		return err
	}
	logger.Info("Snapshot restored", "taken_at", snap.timestamp)
	return nil
}

// SnapshotCount returns the number of held snapshots.
func (m *Manager) SnapshotCount() int {
	return len(m.snapshots)
}

// writeFileAtomic writes data to a temp file beside path and renames it.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// FileStore keeps one JSON file per slot in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(slot string) (string, error) {
	if err := ValidateSlotName(slot); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, slot+".json"), nil
}

// SaveSlot writes the slot file atomically.
func (s *FileStore) SaveSlot(slot string, data []byte) error {
	p, err := s.path(slot)
	if err != nil {
		return err
	}
	return writeFileAtomic(p, data)
}

// LoadSlot reads a slot file.
func (s *FileStore) LoadSlot(slot string) ([]byte, error) {
	p, err := s.path(slot)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return data, err
}

// ListSlots returns saved slot names in sorted order.
func (s *FileStore) ListSlots() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var slots []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(slots)
	return slots, nil
}

// DeleteSlot removes a slot file.
func (s *FileStore) DeleteSlot(slot string) error {
	p, err := s.path(slot)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return err
}

// ValidateSlotName rejects empty names and names that could escape a
// directory.
func ValidateSlotName(slot string) error {
	if slot == "" || len(slot) > 64 {
		return fmt.Errorf("invalid slot name %q", slot)
	}
	if strings.ContainsAny(slot, `/\:`) || strings.HasPrefix(slot, ".") {
		return fmt.Errorf("invalid slot name %q", slot)
	}
	return nil
}
