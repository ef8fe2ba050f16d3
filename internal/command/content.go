package command

import (
	"math/rand/v2"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/help"
	"github.com/lawnchairsociety/xianmud/internal/items"
	"github.com/lawnchairsociety/xianmud/internal/npc"
	"github.com/lawnchairsociety/xianmud/internal/spells"
	"github.com/lawnchairsociety/xianmud/internal/world"
)

// Random is the source of chance for handlers.
type Random interface {
	IntN(n int) int
	Float64() float64
}

// Content is the read-only game data handlers consult. One Content may be
// shared by many sessions as long as Rand is safe for that.
type Content struct {
	World  *world.World
	Items  *items.Catalog
	Spells *spells.SpellRegistry
	NPCs   *npc.Registry
	Help   *help.Help
	Rand   Random
}

// DefaultContent returns the built-in game data with a time-seeded random
// source.
func DefaultContent() *Content {
	seed := uint64(time.Now().UnixNano())
	return &Content{
		World:  world.Default(),
		Items:  items.Default(),
		Spells: spells.Default(),
		NPCs:   npc.Default(),
		Help:   help.Default(),
		Rand:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// randRange returns a value in [lo, hi].
func randRange(r Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

func pick[T any](r Random, options []T) T {
	return options[r.IntN(len(options))]
}

// RegisterDefaults installs the stock handler set.
func RegisterDefaults(p *Processor, content *Content) {
	for _, h := range []Handler{
		NewAttackHandler(content),
		NewDefendHandler(content),
		NewFleeHandler(content),
		NewUseSkillHandler(content),
		NewEncounterHandler(content),

		NewMoveHandler(content),
		NewExploreHandler(content),

		NewCultivateHandler(content),
		NewLearnSkillHandler(content),
		NewBreakthroughHandler(content),

		NewUseItemHandler(content),
		NewPickUpHandler(content),
		NewEquipHandler(content),

		NewTalkHandler(content),
		NewTradeHandler(content),

		NewStatusHandler(content),
		NewInventoryHandler(content),
		NewSkillsHandler(content),
		NewMapHandler(content),
		NewHelpHandler(content, p),

		NewSaveHandler(),
		NewLoadHandler(),
		NewQuitHandler(),
	} {
		p.RegisterHandler(h)
	}
}
