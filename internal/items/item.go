package items

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Item describes one kind of item. Characters carry items by name and count.
type Item struct {
	Name        string
	Description string
	Type        ItemType
	Effect      EffectType
	Amount      int
	Slot        string // Equipment slot, empty for non-equipment
	Price       int    // Price in 灵石
}

// Catalog is the set of known items.
type Catalog struct {
	items map[string]*Item
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*Item)}
}

// Add registers an item, replacing any with the same name.
func (c *Catalog) Add(item *Item) {
	c.items[item.Name] = item
}

// Get looks an item up by exact name.
func (c *Catalog) Get(name string) (*Item, bool) {
	item, ok := c.items[name]
	return item, ok
}

// Names returns all item names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.items))
	for name := range c.items {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Default returns the built-in items.
func Default() *Catalog {
	c := NewCatalog()
	for _, item := range []*Item{
		{Name: "气血药水", Description: "恢复生命值的常用药水", Type: Potion, Effect: EffectHeal, Amount: 100, Price: 10},
		{Name: "灵力药水", Description: "恢复法力值的常用药水", Type: Potion, Effect: EffectMana, Amount: 50, Price: 15},
		{Name: "体力药剂", Description: "缓解疲劳，恢复体力", Type: Potion, Effect: EffectStamina, Amount: 30, Price: 8},
		{Name: "修炼丹", Description: "服用后可增加修为", Type: Pill, Effect: EffectExperience, Amount: 200, Price: 100},
		{Name: "筑基丹", Description: "冲击筑基期所需的丹药", Type: Pill, Price: 500},
		{Name: "灵草", Description: "蕴含灵气的草药，可用于炼丹", Type: Material, Price: 2},
		{Name: "灵石", Description: "修仙界的通用货币", Type: Material, Price: 1},
		{Name: "神秘卷轴", Description: "字迹模糊的古老卷轴", Type: Material, Price: 50},
		{Name: "铁剑", Description: "精铁打造的长剑", Type: Weapon, Slot: "weapon", Price: 30},
		{Name: "青云道袍", Description: "青云宗弟子的道袍", Type: Armor, Slot: "armor", Price: 40},
		{Name: "护身符", Description: "可以抵挡一次邪祟侵扰", Type: Talisman, Slot: "talisman", Price: 25},
	} {
		c.Add(item)
	}
	return c
}

// ItemDefinition represents an item definition from the YAML file
type ItemDefinition struct {
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Effect      string `yaml:"effect,omitempty"`
	Amount      int    `yaml:"amount,omitempty"`
	Slot        string `yaml:"slot,omitempty"`
	Price       int    `yaml:"price"`
}

// ItemsConfig represents the structure of the items.yaml file
type ItemsConfig struct {
	Items map[string]ItemDefinition `yaml:"items"`
}

// Load reads a catalog from a YAML file.
func Load(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var config ItemsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse items YAML: %w", err)
	}

	c := NewCatalog()
	for name, def := range config.Items {
		item := &Item{
			Name:        name,
			Description: def.Description,
			Type:        StringToItemType(def.Type),
			Effect:      EffectType(def.Effect),
			Amount:      def.Amount,
			Slot:        def.Slot,
			Price:       def.Price,
		}
		if item.Type.IsEquippable() && item.Slot == "" {
			item.Slot = item.Type.String()
		}
		c.Add(item)
	}
	return c, nil
}
