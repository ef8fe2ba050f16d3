// Package world holds the map: named locations, their exits and the
// cultivation bonus each one grants.
package world

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/xianmud/internal/logger"
)

// DefaultDescription is shown for a location without its own text.
const DefaultDescription = "你来到了一个新的地方。"

// Location is one place on the map.
type Location struct {
	Name             string
	Description      string
	Type             LocationType
	CultivationBonus float64
	Exits            []string
	Aliases          []string
}

// Describe returns the description or the generic fallback.
func (l *Location) Describe() string {
	if l.Description == "" {
		return DefaultDescription
	}
	return l.Description
}

// HasExit reports whether name is directly reachable from l.
func (l *Location) HasExit(name string) bool {
	for _, e := range l.Exits {
		if e == name {
			return true
		}
	}
	return false
}

// World is the set of known locations. It is read-only after loading.
type World struct {
	locations map[string]*Location
	aliases   map[string]string
	order     []string
}

// New returns an empty world.
func New() *World {
	return &World{
		locations: make(map[string]*Location),
		aliases:   make(map[string]string),
	}
}

// Add registers a location, replacing any with the same name.
func (w *World) Add(loc *Location) {
	if _, exists := w.locations[loc.Name]; !exists {
		w.order = append(w.order, loc.Name)
	}
	w.locations[loc.Name] = loc
	for _, a := range loc.Aliases {
		w.aliases[a] = loc.Name
	}
}

// Find looks a location up by name or alias.
func (w *World) Find(name string) (*Location, bool) {
	name = strings.TrimSpace(name)
	if canonical, ok := w.aliases[name]; ok {
		name = canonical
	}
	loc, ok := w.locations[name]
	return loc, ok
}

// Names returns every location name in registration order.
func (w *World) Names() []string {
	return append([]string(nil), w.order...)
}

// Len returns the number of locations.
func (w *World) Len() int {
	return len(w.locations)
}

// bonusByKeyword applies to places that are not on the map, such as a
// 修炼室 inside a sect. The first keyword contained in the name wins.
var bonusByKeyword = []struct {
	keyword string
	bonus   float64
}{
	{"灵气洞府", 2.0},
	{"青云峰", 1.5},
	{"修炼室", 1.3},
	{"妖兽森林", 0.8},
}

// CultivationBonus returns the cultivation multiplier at a location.
func (w *World) CultivationBonus(name string) float64 {
	if loc, ok := w.Find(name); ok && loc.CultivationBonus > 0 {
		return loc.CultivationBonus
	}
	for _, kb := range bonusByKeyword {
		if strings.Contains(name, kb.keyword) {
			return kb.bonus
		}
	}
	return 1.0
}

// Default returns the built-in map around 青云城.
func Default() *World {
	w := New()
	for _, loc := range []*Location{
		{
			Name:        "青云城",
			Description: "人来人往，热闹非凡。街道两旁商铺林立，叫卖声此起彼伏。",
			Type:        LocationTypeCity,
			Exits:       []string{"青云山", "城外荒野", "灵药谷"},
			Aliases:     []string{"主城"},
		},
		{
			Name:        "青云山",
			Description: "青山绿水，云雾缭绕，隐约可见山顶的道观。这里灵气充沛，是修炼的绝佳之地。",
			Type:        LocationTypeMountain,
			Exits:       []string{"青云城", "青云峰"},
		},
		{
			Name:             "青云峰",
			Description:      "峰顶云海翻涌，天地灵气在此汇聚。",
			Type:             LocationTypeMountain,
			CultivationBonus: 1.5,
			Exits:            []string{"青云山", "灵气洞府"},
		},
		{
			Name:             "灵气洞府",
			Description:      "洞府中灵雾氤氲，石壁上刻满了前人留下的修炼心得。",
			Type:             LocationTypeMountain,
			CultivationBonus: 2.0,
			Exits:            []string{"青云峰"},
		},
		{
			Name:        "灵药谷",
			Description: "百花齐放，药香扑鼻。这里生长着各种珍贵的灵药。",
			Type:        LocationTypeValley,
			Exits:       []string{"青云城", "妖兽森林"},
		},
		{
			Name:        "城外荒野",
			Description: "荒草没膝，偶有妖兽出没的痕迹。",
			Type:        LocationTypeWilderness,
			Exits:       []string{"青云城", "妖兽森林"},
			Aliases:     []string{"野外"},
		},
		{
			Name:             "妖兽森林",
			Description:      "古木参天，阴森恐怖。不时传来野兽的咆哮声，危机四伏。",
			Type:             LocationTypeBeastLair,
			CultivationBonus: 0.8,
			Exits:            []string{"城外荒野", "灵药谷"},
		},
	} {
		w.Add(loc)
	}
	return w
}

// LocationDefinition is a location in the yaml file.
type LocationDefinition struct {
	Description      string   `yaml:"description"`
	Type             string   `yaml:"type"`
	CultivationBonus float64  `yaml:"cultivation_bonus,omitempty"`
	Exits            []string `yaml:"exits"`
	Aliases          []string `yaml:"aliases,omitempty"`
}

// WorldConfig is the structure of a world yaml file.
type WorldConfig struct {
	Locations map[string]LocationDefinition `yaml:"locations"`
	// Order lists location names for the map display. Unlisted locations
	// follow in name order.
	Order []string `yaml:"order,omitempty"`
}

// Load reads a world from a yaml file. Exits must name known locations.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}

	var cfg WorldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse world YAML: %w", err)
	}
	return build(cfg)
}

func build(cfg WorldConfig) (*World, error) {
	if len(cfg.Locations) == 0 {
		return nil, fmt.Errorf("world has no locations")
	}

	names := make([]string, 0, len(cfg.Locations))
	seen := make(map[string]bool, len(cfg.Locations))
	for _, name := range cfg.Order {
		if _, ok := cfg.Locations[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(cfg.Locations))
	for name := range cfg.Locations {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	names = append(names, rest...)

	w := New()
	for _, name := range names {
		def := cfg.Locations[name]
		lt, ok := ParseLocationType(def.Type)
		if !ok && def.Type != "" {
			logger.Warning("Unknown location type, using city", "location", name, "type", def.Type)
		}
		w.Add(&Location{
			Name:             name,
			Description:      def.Description,
			Type:             lt,
			CultivationBonus: def.CultivationBonus,
			Exits:            def.Exits,
			Aliases:          def.Aliases,
		})
	}

	for _, name := range names {
		for _, exit := range cfg.Locations[name].Exits {
			if _, ok := w.locations[exit]; !ok {
				return nil, fmt.Errorf("location %s: exit to unknown location %s", name, exit)
			}
		}
	}
	logger.Info("Loaded world", "locations", w.Len())
	return w, nil
}
