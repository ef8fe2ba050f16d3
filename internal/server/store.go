package server

import (
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/state"
)

// prefixStore gives one player a private view of a shared slot store.
type prefixStore struct {
	next   state.SlotStore
	prefix string
}

func (p *prefixStore) SaveSlot(slot string, data []byte) error {
	return p.next.SaveSlot(p.prefix+slot, data)
}

func (p *prefixStore) LoadSlot(slot string) ([]byte, error) {
	return p.next.LoadSlot(p.prefix + slot)
}

// ListSlots returns the player's slots with the prefix removed.
func (p *prefixStore) ListSlots() ([]string, error) {
	all, err := p.next.ListSlots()
	if err != nil {
		return nil, err
	}
	var mine []string
	for _, slot := range all {
		if rest, ok := strings.CutPrefix(slot, p.prefix); ok {
			mine = append(mine, rest)
		}
	}
	return mine, nil
}

func (p *prefixStore) DeleteSlot(slot string) error {
	return p.next.DeleteSlot(p.prefix + slot)
}
