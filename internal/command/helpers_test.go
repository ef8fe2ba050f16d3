package command

import (
	"testing"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/help"
	"github.com/lawnchairsociety/xianmud/internal/items"
	"github.com/lawnchairsociety/xianmud/internal/npc"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/spells"
	"github.com/lawnchairsociety/xianmud/internal/state"
	"github.com/lawnchairsociety/xianmud/internal/world"
)

// scriptedRand replays fixed values. Once a queue runs dry Float64 returns
// 0.99, so chance events do not fire, and IntN returns 0.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return min(i, n-1)
}

type testGame struct {
	proc  *Processor
	state *state.Manager
	out   *output.Buffer
	rng   *scriptedRand
}

// newTestGame wires the stock handlers and validation around a fresh player
// standing in 青云城.
func newTestGame(t *testing.T, cfg state.Config) *testGame {
	t.Helper()
	if cfg.StartingLocation == "" {
		cfg.StartingLocation = "青云城"
	}
	sm := state.NewManager(cfg)
	sm.SetPlayer(character.New("测试"))

	rng := &scriptedRand{}
	content := &Content{
		World:  world.Default(),
		Items:  items.Default(),
		Spells: spells.Default(),
		NPCs:   npc.Default(),
		Help:   help.Default(),
		Rand:   rng,
	}
	out := output.NewBuffer()
	p := NewProcessor(sm, out, Options{})
	RegisterDefaults(p, content)
	p.AddMiddleware(ValidationMiddleware{})
	return &testGame{proc: p, state: sm, out: out, rng: rng}
}

func (g *testGame) run(t *testing.T, input string) Result {
	t.Helper()
	return g.proc.ProcessCommand(input, SourcePlayer)
}

func (g *testGame) player() *character.Character {
	return g.state.Player()
}
