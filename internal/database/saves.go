package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/state"
)

// ErrSlotNotFound is returned for a slot with no row.
var ErrSlotNotFound = state.ErrSlotNotFound

// SlotInfo describes a stored save without its payload.
type SlotInfo struct {
	Slot    string
	Version string
	SavedAt time.Time
}

// saveVersion reads the envelope version without decoding the whole save.
func saveVersion(data []byte) string {
	var head struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(data, &head) != nil {
		return ""
	}
	return head.Version
}

// SaveSlot writes data under slot, replacing any existing save.
func (d *Database) SaveSlot(slot string, data []byte) error {
	query := d.qb.Build(`INSERT INTO saves (slot, version, data, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET version = excluded.version, data = excluded.data, saved_at = excluded.saved_at`)
	if _, err := d.db.Exec(query, slot, saveVersion(data), data, time.Now().UTC()); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

// LoadSlot returns the save stored under slot.
func (d *Database) LoadSlot(slot string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRow(d.qb.Build(`SELECT data FROM saves WHERE slot = ?`), slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return data, nil
}

// ListSlots returns every slot name in name order.
func (d *Database) ListSlots() ([]string, error) {
	infos, err := d.SlotInfos()
	if err != nil {
		return nil, err
	}
	slots := make([]string, 0, len(infos))
	for _, info := range infos {
		slots = append(slots, info.Slot)
	}
	return slots, nil
}

// SlotInfos returns metadata for every slot in name order.
func (d *Database) SlotInfos() ([]SlotInfo, error) {
	rows, err := d.db.Query(`SELECT slot, version, saved_at FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var infos []SlotInfo
	for rows.Next() {
		var info SlotInfo
		if err := rows.Scan(&info.Slot, &info.Version, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteSlot removes slot. Deleting a missing slot is an error.
func (d *Database) DeleteSlot(slot string) error {
	res, err := d.db.Exec(d.qb.Build(`DELETE FROM saves WHERE slot = ?`), slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return nil
}
