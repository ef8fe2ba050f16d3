package npc

import (
	"slices"

	"github.com/lawnchairsociety/xianmud/internal/character"
)

// LootEntry represents an item that can drop with a probability
type LootEntry struct {
	ItemName string
	Chance   float64 // 0.0 to 1.0
	Count    int
}

// ShopItem represents an item for sale by a merchant
type ShopItem struct {
	ItemName string
	Price    int // Price in 灵石 (0 = use the item's catalog price)
}

// NPC is the definition of a townsperson or a beast. Live copies for the
// state manager come from Character.
type NPC struct {
	ID          string
	Name        string
	Description string
	Location    string
	Hostile     bool // Beasts that fight when attacked or met
	Level       int
	Health      int
	Damage      int
	Experience  int // Cultivation awarded on defeat
	Loot        []LootEntry
	Shop        []ShopItem
	Dialogue    []string
	// Affinity is the relationship change from one conversation.
	Affinity int
}

// IsMerchant reports whether the NPC sells anything.
func (n *NPC) IsMerchant() bool {
	return len(n.Shop) > 0
}

// Line returns the i-th dialogue line, cycling through the list.
func (n *NPC) Line(i int) string {
	if len(n.Dialogue) == 0 {
		return "……"
	}
	if i < 0 {
		i = -i
	}
	return n.Dialogue[i%len(n.Dialogue)]
}

// Character builds the live state record for this NPC.
func (n *NPC) Character() *character.Character {
	c := character.New(n.Name)
	c.ID = n.ID
	c.Level = max(n.Level, 1)
	if n.Health > 0 {
		c.Health = n.Health
		c.MaxHealth = n.Health
	}
	return c
}

// Registry holds all NPC definitions.
type Registry struct {
	npcs  map[string]*NPC
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{npcs: make(map[string]*NPC)}
}

// Add registers an NPC, replacing any with the same id.
func (r *Registry) Add(n *NPC) {
	if _, exists := r.npcs[n.ID]; !exists {
		r.order = append(r.order, n.ID)
	}
	r.npcs[n.ID] = n
}

// Get looks an NPC up by id.
func (r *Registry) Get(id string) (*NPC, bool) {
	n, ok := r.npcs[id]
	return n, ok
}

// Find looks an NPC up by id or display name.
func (r *Registry) Find(name string) (*NPC, bool) {
	if n, ok := r.npcs[name]; ok {
		return n, true
	}
	for _, id := range r.order {
		if r.npcs[id].Name == name {
			return r.npcs[id], true
		}
	}
	return nil, false
}

// AtLocation returns the NPCs at a location in registration order.
func (r *Registry) AtLocation(location string) []*NPC {
	var out []*NPC
	for _, id := range r.order {
		if n := r.npcs[id]; n.Location == location {
			out = append(out, n)
		}
	}
	return out
}

// Beasts returns the hostile NPCs at a location.
func (r *Registry) Beasts(location string) []*NPC {
	return slices.DeleteFunc(r.AtLocation(location), func(n *NPC) bool {
		return !n.Hostile
	})
}

// Names returns every NPC display name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.npcs[id].Name)
	}
	return names
}

// Len returns the number of NPCs.
func (r *Registry) Len() int {
	return len(r.npcs)
}

// Default returns the built-in cast.
func Default() *Registry {
	r := NewRegistry()
	for _, n := range []*NPC{
		{
			ID:          "elder_li",
			Name:        "李长老",
			Description: "青云宗外门长老，须发皆白，目光如电。",
			Location:    "青云城",
			Dialogue: []string{
				"修行之路，贵在坚持。",
				"灵气洞府在青云峰后山，是修炼的好去处。",
				"若想突破，需先将修为打磨圆满。",
			},
			Affinity: 2,
		},
		{
			ID:          "merchant_wang",
			Name:        "王掌柜",
			Description: "百草堂的掌柜，笑容可掬。",
			Location:    "青云城",
			Dialogue:    []string{"客官，要买点什么？", "新到的修炼丹，童叟无欺。"},
			Shop: []ShopItem{
				{ItemName: "气血药水"},
				{ItemName: "灵力药水"},
				{ItemName: "体力药剂"},
				{ItemName: "修炼丹", Price: 120},
				{ItemName: "铁剑"},
			},
			Affinity: 1,
		},
		{
			ID:          "herb_girl",
			Name:        "采药童子",
			Description: "背着竹篓的小童，熟悉谷中每一株灵草。",
			Location:    "灵药谷",
			Dialogue:    []string{"谷里的灵草可不能乱采哦。", "妖兽森林很危险，你要小心。"},
			Affinity:    1,
		},
		{
			ID:          "wild_wolf",
			Name:        "妖狼",
			Description: "双目赤红的妖狼，獠牙外露。",
			Location:    "城外荒野",
			Hostile:     true,
			Level:       2,
			Health:      80,
			Damage:      8,
			Experience:  30,
			Loot:        []LootEntry{{ItemName: "灵石", Chance: 0.5, Count: 5}},
		},
		{
			ID:          "demon_beast",
			Name:        "妖兽",
			Description: "体型庞大的妖兽，浑身覆盖着坚硬的鳞甲。",
			Location:    "妖兽森林",
			Hostile:     true,
			Level:       5,
			Health:      150,
			Damage:      15,
			Experience:  80,
			Loot: []LootEntry{
				{ItemName: "灵石", Chance: 0.8, Count: 10},
				{ItemName: "灵草", Chance: 0.3, Count: 1},
			},
		},
	} {
		r.Add(n)
	}
	return r
}
