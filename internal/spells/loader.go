package spells

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpellDefinition represents a spell definition from the YAML file.
type SpellDefinition struct {
	Description string `yaml:"description"`
	Effect      string `yaml:"effect"`
	Amount      int    `yaml:"amount"`
	ManaCost    int    `yaml:"mana_cost"`
	Level       int    `yaml:"level"`
}

// SpellsConfig represents the structure of the spells.yaml file.
type SpellsConfig struct {
	Spells map[string]SpellDefinition `yaml:"spells"`
}

// LoadSpellsFromYAML loads spell definitions from a YAML file.
func LoadSpellsFromYAML(filename string) (*SpellsConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read spells file: %w", err)
	}

	var config SpellsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse spells YAML: %w", err)
	}

	return &config, nil
}

// StringToEffectType converts a string to an EffectType.
func StringToEffectType(s string) (EffectType, bool) {
	switch EffectType(s) {
	case EffectDamage, EffectHeal, EffectShield, EffectMovement:
		return EffectType(s), true
	default:
		return EffectDamage, false
	}
}

// BuildRegistry converts a loaded config into a registry ordered by level,
// then by name.
func BuildRegistry(config *SpellsConfig) (*SpellRegistry, error) {
	names := make([]string, 0, len(config.Spells))
	for name := range config.Spells {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := config.Spells[a].Level - config.Spells[b].Level; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	r := NewSpellRegistry()
	for _, name := range names {
		def := config.Spells[name]
		effect, ok := StringToEffectType(def.Effect)
		if !ok {
			return nil, fmt.Errorf("spell %s: unknown effect %q", name, def.Effect)
		}
		if def.ManaCost < 0 || def.Level < 0 {
			return nil, fmt.Errorf("spell %s: mana cost and level must not be negative", name)
		}
		r.Register(&Spell{
			Name:        name,
			Description: def.Description,
			Effect:      effect,
			Amount:      def.Amount,
			ManaCost:    def.ManaCost,
			Level:       def.Level,
		})
	}
	return r, nil
}

// Load reads and builds a registry from a YAML file.
func Load(filename string) (*SpellRegistry, error) {
	config, err := LoadSpellsFromYAML(filename)
	if err != nil {
		return nil, err
	}
	return BuildRegistry(config)
}
