// Package spells provides the techniques (功法 and 法术) a cultivator can
// learn and use.
package spells

// EffectType represents the type of effect a spell has.
type EffectType string

const (
	EffectDamage   EffectType = "damage"
	EffectHeal     EffectType = "heal"
	EffectShield   EffectType = "shield"   // Halves the next hit taken
	EffectMovement EffectType = "movement" // Travel technique, no combat effect
)

// Spell is a learnable technique.
type Spell struct {
	Name        string
	Description string
	Effect      EffectType
	Amount      int
	ManaCost    int
	Level       int // Minimum overall level to learn
}

// UsableInCombat reports whether the spell does anything in a fight.
func (s *Spell) UsableInCombat() bool {
	return s.Effect != EffectMovement
}

// SpellRegistry holds all loaded spells and provides lookup.
type SpellRegistry struct {
	spells map[string]*Spell
	order  []string
}

// NewSpellRegistry creates a new empty spell registry.
func NewSpellRegistry() *SpellRegistry {
	return &SpellRegistry{spells: make(map[string]*Spell)}
}

// Register adds a spell, replacing any with the same name.
func (r *SpellRegistry) Register(s *Spell) {
	if _, exists := r.spells[s.Name]; !exists {
		r.order = append(r.order, s.Name)
	}
	r.spells[s.Name] = s
}

// Get retrieves a spell by name.
func (r *SpellRegistry) Get(name string) (*Spell, bool) {
	s, ok := r.spells[name]
	return s, ok
}

// All returns every spell in registration order.
func (r *SpellRegistry) All() []*Spell {
	out := make([]*Spell, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.spells[name])
	}
	return out
}

// Learnable returns the spells a character of the given overall level may
// learn.
func (r *SpellRegistry) Learnable(level int) []*Spell {
	var out []*Spell
	for _, s := range r.All() {
		if s.Level <= level {
			out = append(out, s)
		}
	}
	return out
}

// Default returns the built-in techniques.
func Default() *SpellRegistry {
	r := NewSpellRegistry()
	for _, s := range []*Spell{
		{Name: "基础剑法", Description: "青云宗入门剑法", Effect: EffectDamage, Amount: 30, ManaCost: 0, Level: 1},
		{Name: "治疗术", Description: "运转灵力修复伤势", Effect: EffectHeal, Amount: 60, ManaCost: 15, Level: 3},
		{Name: "火球术", Description: "凝聚灵力化为火球", Effect: EffectDamage, Amount: 60, ManaCost: 15, Level: 3},
		{Name: "剑气斩", Description: "凝聚剑气进行远程攻击，威力强大", Effect: EffectDamage, Amount: 80, ManaCost: 20, Level: 5},
		{Name: "金刚护体", Description: "运转真气护体，大幅提升防御力", Effect: EffectShield, ManaCost: 25, Level: 10},
		{Name: "御剑术", Description: "御剑飞行，可以快速移动", Effect: EffectMovement, ManaCost: 30, Level: 15},
	} {
		r.Register(s)
	}
	return r
}
