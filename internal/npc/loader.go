package npc

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/xianmud/internal/logger"
)

// LootEntryYAML represents a loot entry in YAML format
type LootEntryYAML struct {
	Item   string  `yaml:"item"`
	Chance float64 `yaml:"chance"` // Drop probability (0-1)
	Count  int     `yaml:"count"`
}

// ShopItemYAML represents an item for sale in YAML format
type ShopItemYAML struct {
	Item  string `yaml:"item"`
	Price int    `yaml:"price"`
}

// NPCDefinition represents an NPC definition from the YAML file
type NPCDefinition struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Location    string          `yaml:"location"`
	Hostile     bool            `yaml:"hostile"`
	Level       int             `yaml:"level"`
	Health      int             `yaml:"health"`
	Damage      int             `yaml:"damage"`
	Experience  int             `yaml:"experience"`
	Loot        []LootEntryYAML `yaml:"loot"`
	Shop        []ShopItemYAML  `yaml:"shop"`
	Dialogue    []string        `yaml:"dialogue"`
	Affinity    int             `yaml:"affinity"`
}

// NPCsConfig represents the structure of the npcs.yaml file
type NPCsConfig struct {
	NPCs map[string]NPCDefinition `yaml:"npcs"`
}

// LoadNPCsFromYAML loads NPC definitions from a YAML file
func LoadNPCsFromYAML(filename string) (*NPCsConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read NPCs file: %w", err)
	}

	var config NPCsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse NPCs YAML: %w", err)
	}

	for id, def := range config.NPCs {
		if def.Hostile && def.Health <= 0 {
			logger.Warning("NPC auto-correction applied",
				"npc_id", id,
				"issue", "hostile without health",
				"correction", "health set to 50")
			def.Health = 50
			config.NPCs[id] = def
		}
	}

	return &config, nil
}

// BuildRegistry converts a loaded config into a registry ordered by id.
func BuildRegistry(config *NPCsConfig) *Registry {
	ids := make([]string, 0, len(config.NPCs))
	for id := range config.NPCs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	r := NewRegistry()
	for _, id := range ids {
		def := config.NPCs[id]
		n := &NPC{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Location:    def.Location,
			Hostile:     def.Hostile,
			Level:       def.Level,
			Health:      def.Health,
			Damage:      def.Damage,
			Experience:  def.Experience,
			Dialogue:    def.Dialogue,
			Affinity:    def.Affinity,
		}
		if n.Name == "" {
			n.Name = id
		}
		for _, l := range def.Loot {
			n.Loot = append(n.Loot, LootEntry{ItemName: l.Item, Chance: l.Chance, Count: max(l.Count, 1)})
		}
		for _, s := range def.Shop {
			n.Shop = append(n.Shop, ShopItem{ItemName: s.Item, Price: s.Price})
		}
		r.Add(n)
	}
	return r
}

// Load reads and builds a registry from a YAML file.
func Load(filename string) (*Registry, error) {
	config, err := LoadNPCsFromYAML(filename)
	if err != nil {
		return nil, err
	}
	return BuildRegistry(config), nil
}
