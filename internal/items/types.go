package items

// ItemType represents the category of an item
type ItemType int

const (
	Material ItemType = iota
	Potion
	Pill
	Weapon
	Armor
	Talisman
)

// String returns the string representation of an ItemType
func (t ItemType) String() string {
	switch t {
	case Material:
		return "material"
	case Potion:
		return "potion"
	case Pill:
		return "pill"
	case Weapon:
		return "weapon"
	case Armor:
		return "armor"
	case Talisman:
		return "talisman"
	default:
		return "unknown"
	}
}

// IsEquippable returns true if the item type can be equipped
func (t ItemType) IsEquippable() bool {
	return t == Weapon || t == Armor || t == Talisman
}

// IsConsumable returns true if the item type can be consumed
func (t ItemType) IsConsumable() bool {
	return t == Potion || t == Pill
}

// StringToItemType converts a string to an ItemType
func StringToItemType(s string) ItemType {
	switch s {
	case "potion":
		return Potion
	case "pill":
		return Pill
	case "weapon":
		return Weapon
	case "armor":
		return Armor
	case "talisman":
		return Talisman
	default:
		return Material
	}
}

// EffectType is what consuming an item restores or grants.
type EffectType string

const (
	EffectNone       EffectType = ""
	EffectHeal       EffectType = "heal"
	EffectMana       EffectType = "mana"
	EffectStamina    EffectType = "stamina"
	EffectExperience EffectType = "exp"
)
