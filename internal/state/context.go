package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContextType is an interaction mode of the game.
type ContextType int

const (
	ContextNone ContextType = iota
	ContextExploration
	ContextCombat
	ContextDialogue
	ContextCultivation
	ContextTrading
	ContextCrafting
	ContextMenu
	ContextCutscene
)

var contextNames = map[ContextType]string{
	ContextNone:        "NONE",
	ContextExploration: "EXPLORATION",
	ContextCombat:      "COMBAT",
	ContextDialogue:    "DIALOGUE",
	ContextCultivation: "CULTIVATION",
	ContextTrading:     "TRADING",
	ContextCrafting:    "CRAFTING",
	ContextMenu:        "MENU",
	ContextCutscene:    "CUTSCENE",
}

func (c ContextType) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ContextType(%d)", int(c))
}

// ParseContextType maps a serialized name back to its ContextType.
func ParseContextType(name string) (ContextType, error) {
	for ct, n := range contextNames {
		if n == name && ct != ContextNone {
			return ct, nil
		}
	}
	return ContextNone, fmt.Errorf("unknown context type %q", name)
}

func (c ContextType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ContextType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	ct, err := ParseContextType(name)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// ContextInfo is one entry of the context stack.
type ContextInfo struct {
	Type      ContextType    `json:"context_type"`
	Data      map[string]any `json:"data"`
	EnteredAt time.Time      `json:"entered_at"`
}

func (c ContextInfo) clone() ContextInfo {
	data := make(map[string]any, len(c.Data))
	for k, v := range c.Data {
		data[k] = v
	}
	c.Data = data
	return c
}
