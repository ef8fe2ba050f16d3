// Package character holds the cultivator model shared by the player and NPCs.
package character

import (
	"github.com/google/uuid"
)

// Realms is the cultivation ladder, lowest first.
var Realms = []string{"炼气期", "筑基期", "金丹期", "元婴期", "化神期"}

// ExperiencePerLevel is the cultivation needed for each level within a realm.
const ExperiencePerLevel = 100

// LevelsPerRealm is how many levels a realm has before a breakthrough is required.
const LevelsPerRealm = 9

// Character is a cultivator. The zero value is not usable; use New.
type Character struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Level      int            `json:"level"`
	RealmIndex int            `json:"realm_index"`
	Experience int            `json:"experience"`
	Health     int            `json:"health"`
	MaxHealth  int            `json:"max_health"`
	Mana       int            `json:"mana"`
	MaxMana    int            `json:"max_mana"`
	Stamina    int            `json:"stamina"`
	MaxStamina int            `json:"max_stamina"`
	Skills     []string       `json:"skills"`
	Inventory  map[string]int `json:"inventory"`
	// Equipment maps a slot to the equipped item name.
	Equipment map[string]string `json:"equipment,omitempty"`
}

// New creates a level 1 cultivator in the first realm.
func New(name string) *Character {
	return &Character{
		ID:         uuid.NewString(),
		Name:       name,
		Level:      1,
		Health:     100,
		MaxHealth:  100,
		Mana:       50,
		MaxMana:    50,
		Stamina:    100,
		MaxStamina: 100,
		Skills:     []string{},
		Inventory:  map[string]int{},
		Equipment:  map[string]string{},
	}
}

// Realm returns the realm name.
func (c *Character) Realm() string {
	if c.RealmIndex < 0 || c.RealmIndex >= len(Realms) {
		return Realms[0]
	}
	return Realms[c.RealmIndex]
}

// TotalLevel counts levels across realms, so the first level of 筑基期 is 10.
func (c *Character) TotalLevel() int {
	return c.RealmIndex*LevelsPerRealm + c.Level
}

// IsAlive reports whether health is above zero.
func (c *Character) IsAlive() bool {
	return c.Health > 0
}

// ConsumeStamina spends stamina, returning false without change when short.
func (c *Character) ConsumeStamina(amount int) bool {
	if c.Stamina < amount {
		return false
	}
	c.Stamina -= amount
	return true
}

// RestoreStamina refills stamina up to the maximum.
func (c *Character) RestoreStamina(amount int) {
	c.Stamina = min(c.Stamina+amount, c.MaxStamina)
}

// UseMana spends mana, returning false without change when short.
func (c *Character) UseMana(amount int) bool {
	if c.Mana < amount {
		return false
	}
	c.Mana -= amount
	return true
}

// Heal restores health up to the maximum and returns the amount healed.
func (c *Character) Heal(amount int) int {
	before := c.Health
	c.Health = min(c.Health+amount, c.MaxHealth)
	return c.Health - before
}

// TakeDamage lowers health, never below zero, and returns the damage applied.
func (c *Character) TakeDamage(amount int) int {
	before := c.Health
	c.Health = max(c.Health-amount, 0)
	return before - c.Health
}

// GainExperience adds cultivation progress and returns the number of levels
// gained. Levels stop at the realm cap until a breakthrough.
func (c *Character) GainExperience(amount int) int {
	c.Experience += amount
	gained := 0
	for c.Level < LevelsPerRealm && c.Experience >= ExperiencePerLevel {
		c.Experience -= ExperiencePerLevel
		c.Level++
		gained++
	}
	return gained
}

// CanBreakthrough reports whether the character sits at the realm cap with a
// full bar of experience and a higher realm exists.
func (c *Character) CanBreakthrough() bool {
	return c.Level >= LevelsPerRealm &&
		c.Experience >= ExperiencePerLevel &&
		c.RealmIndex < len(Realms)-1
}

// Breakthrough advances to the next realm and resets the level.
func (c *Character) Breakthrough() {
	c.RealmIndex++
	c.Level = 1
	c.Experience = 0
	c.MaxHealth += 50
	c.MaxMana += 30
	c.MaxStamina += 20
	c.Health = c.MaxHealth
	c.Mana = c.MaxMana
	c.Stamina = c.MaxStamina
}

// LearnSkill adds a skill; it returns false if already known.
func (c *Character) LearnSkill(skill string) bool {
	if c.HasSkill(skill) {
		return false
	}
	c.Skills = append(c.Skills, skill)
	return true
}

// HasSkill reports whether the skill is known.
func (c *Character) HasSkill(skill string) bool {
	for _, s := range c.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// AddItem puts count items into the inventory.
func (c *Character) AddItem(item string, count int) {
	if c.Inventory == nil {
		c.Inventory = map[string]int{}
	}
	c.Inventory[item] += count
}

// HasItem reports whether at least one of the item is carried.
func (c *Character) HasItem(item string) bool {
	return c.Inventory[item] > 0
}

// RemoveItem takes one item out of the inventory.
func (c *Character) RemoveItem(item string) bool {
	if c.Inventory[item] <= 0 {
		return false
	}
	c.Inventory[item]--
	if c.Inventory[item] == 0 {
		delete(c.Inventory, item)
	}
	return true
}

// RemoveItems takes count items out of the inventory, or none if fewer are
// carried.
func (c *Character) RemoveItems(item string, count int) bool {
	if count <= 0 || c.Inventory[item] < count {
		return false
	}
	c.Inventory[item] -= count
	if c.Inventory[item] == 0 {
		delete(c.Inventory, item)
	}
	return true
}

// Equip moves an item from the inventory into a slot. Whatever occupied the
// slot goes back to the inventory and is returned.
func (c *Character) Equip(slot, item string) (previous string, ok bool) {
	if !c.RemoveItem(item) {
		return "", false
	}
	if c.Equipment == nil {
		c.Equipment = map[string]string{}
	}
	previous = c.Equipment[slot]
	if previous != "" {
		c.AddItem(previous, 1)
	}
	c.Equipment[slot] = item
	return previous, true
}

// Unequip returns the item in a slot to the inventory.
func (c *Character) Unequip(slot string) (string, bool) {
	item, ok := c.Equipment[slot]
	if !ok {
		return "", false
	}
	delete(c.Equipment, slot)
	c.AddItem(item, 1)
	return item, true
}

// EquippedSlot finds the slot holding an item.
func (c *Character) EquippedSlot(item string) (string, bool) {
	for slot, it := range c.Equipment {
		if it == item {
			return slot, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	out.Inventory = make(map[string]int, len(c.Inventory))
	for k, v := range c.Inventory {
		out.Inventory[k] = v
	}
	out.Equipment = make(map[string]string, len(c.Equipment))
	for k, v := range c.Equipment {
		out.Equipment[k] = v
	}
	return &out
}
