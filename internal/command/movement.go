package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

const (
	moveStaminaCost    = 10
	exploreStaminaCost = 5
	moveTicks          = 5
	exploreTicks       = 3
)

var (
	errNotStarted       = errors.New("游戏尚未开始")
	errTooTiredToMove   = errors.New("体力不足，无法移动")
	errTooTiredToSearch = errors.New("体力不足，无法探索")
)

// MoveHandler travels between locations. It can be undone.
type MoveHandler struct {
	BaseHandler
	content *Content
}

// NewMoveHandler returns the MOVE handler.
func NewMoveHandler(content *Content) *MoveHandler {
	return &MoveHandler{
		BaseHandler: NewBaseHandler("movement", PriorityNormal, Move),
		content:     content,
	}
}

// CanHandle refuses while fighting or talking.
func (h *MoveHandler) CanHandle(c *Context) bool {
	ct := c.GameContext()
	return ct != state.ContextCombat && ct != state.ContextDialogue
}

func (h *MoveHandler) Validate(c *Context) error {
	p := c.Player()
	if p == nil {
		return errNotStarted
	}
	if p.Stamina < moveStaminaCost {
		return errTooTiredToMove
	}
	return nil
}

func (h *MoveHandler) Handle(c *Context) Result {
	dest := c.Command.Param("location")
	if dest == "" {
		c.write(output.Error, "请指定要去的地点")
		c.write(output.Info, "使用 '地图' 命令查看可去的地点")
		return Failure("未指定目的地", true)
	}

	from := c.Location()
	loc, ok := h.content.World.Find(dest)
	if !ok {
		c.writef(output.Error, "无法前往 %s", dest)
		return Failure("无法到达目的地", true)
	}
	if loc.Name == from {
		c.writef(output.Info, "你已经在%s了", from)
		return Failure("已在目的地", true)
	}
	if cur, known := h.content.World.Find(from); known && !cur.HasExit(loc.Name) {
		c.writef(output.Error, "无法从%s直接前往%s", from, loc.Name)
		return Failure("无法到达目的地", true)
	}

	p := c.Player()
	c.writef(output.Narrative, "你离开了%s...", from)
	p.ConsumeStamina(moveStaminaCost)
	c.writef(output.System, "消耗了%d点体力", moveStaminaCost)

	c.State.SetLocation(loc.Name)
	c.State.AdvanceTime(moveTicks)
	c.Metadata["previous_location"] = from
	c.write(output.Narrative, loc.Describe())

	if here := h.content.NPCs.AtLocation(loc.Name); len(here) > 0 {
		names := make([]string, 0, len(here))
		for _, n := range here {
			if !n.Hostile {
				names = append(names, n.Name)
			}
		}
		if len(names) > 0 {
			c.writef(output.Info, "这里有：%s", strings.Join(names, "、"))
		}
	}

	result := Success("移动成功").
		With("new_location", loc.Name).
		With("previous_location", from)

	if chance := loc.Type.EncounterChance(); chance > 0 && h.content.Rand.Float64() < chance {
		if beasts := h.content.NPCs.Beasts(loc.Name); len(beasts) > 0 {
			beast := pick(h.content.Rand, beasts)
			c.writef(output.Warning, "你遇到了一只游荡的%s！", beast.Name)
			result = result.With("combat_id", startFight(c, beast))
		}
	}
	return result
}

// Undo returns to the previous location and refunds the stamina.
func (h *MoveHandler) Undo(c *Context) Result {
	prev, _ := c.Metadata["previous_location"].(string)
	if prev == "" {
		return Failure("无法撤销移动", false)
	}
	if c.State.IsInCombat() {
		return Failure("战斗中无法撤销移动", false)
	}
	c.State.SetLocation(prev)
	if p := c.Player(); p != nil {
		p.RestoreStamina(moveStaminaCost)
	}
	c.writef(output.Narrative, "你回到了%s", prev)
	return Success("已返回"+prev).With("new_location", prev)
}

func (h *MoveHandler) Help() string {
	return `移动命令：去 <地点>

用法：
  去 青云山
  前往 主城
  移动到 妖兽森林

说明：
  移动到相邻的地点。移动需要消耗体力，荒野和妖兽森林可能遭遇妖兽。
  使用 '地图' 命令可以查看当前可以前往的地点。`
}

var (
	exploreFinds = []struct {
		item   string
		lo, hi int
	}{
		{"灵草", 1, 3},
		{"灵石", 5, 15},
		{"神秘卷轴", 1, 1},
	}
	hiddenPlaces = []string{"隐藏的山洞", "废弃的道观", "神秘的祭坛"}
	wanderers    = []string{"游商", "受伤的修士", "神秘老人"}
)

// ExploreHandler searches the current location. Found items are left on
// the ground for PICK_UP.
type ExploreHandler struct {
	BaseHandler
	content *Content
}

// NewExploreHandler returns the EXPLORE handler.
func NewExploreHandler(content *Content) *ExploreHandler {
	return &ExploreHandler{
		BaseHandler: NewBaseHandler("explore", PriorityNormal, Explore),
		content:     content,
	}
}

func (h *ExploreHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *ExploreHandler) Validate(c *Context) error {
	p := c.Player()
	if p == nil {
		return errNotStarted
	}
	if p.Stamina < exploreStaminaCost {
		return errTooTiredToSearch
	}
	return nil
}

func (h *ExploreHandler) Handle(c *Context) Result {
	r := h.content.Rand
	location := c.Location()
	c.write(output.Narrative, "你仔细探索着周围的环境...")

	var findings []map[string]any

	if r.Float64() < 0.4 {
		find := pick(r, exploreFinds)
		qty := randRange(r, find.lo, find.hi)
		dropOnGround(c.State, location, find.item, qty)
		findings = append(findings, map[string]any{"kind": "item", "name": find.item, "quantity": qty})
		c.writef(output.Success, "你找到了 %s x%d！", find.item, qty)
		c.writef(output.Info, "输入 '拾取 %s' 收起。", find.item)
	}

	if r.Float64() < 0.3 {
		place := pick(r, hiddenPlaces)
		findings = append(findings, map[string]any{"kind": "place", "name": place})
		c.writef(output.Info, "你发现了一个%s！", place)
		c.State.SetFlag(fmt.Sprintf("discovered:%s:%s", location, place), true)
		c.State.UpdateStatistic("places_discovered", 1)
	}

	if r.Float64() < 0.2 {
		who := pick(r, wanderers)
		findings = append(findings, map[string]any{"kind": "encounter", "name": who})
		c.writef(output.Warning, "你遇到了一个%s。", who)
	}

	if len(findings) == 0 {
		c.write(output.Info, "你没有发现什么特别的东西。")
	}

	c.Player().ConsumeStamina(exploreStaminaCost)
	c.State.UpdateStatistic("areas_explored", 0.1)
	c.State.AdvanceTime(exploreTicks)

	return Success("探索完成").With("findings", findings)
}

func (h *ExploreHandler) Help() string {
	return `探索命令：探索

说明：
  探索当前区域，可能发现物品、隐藏地点或遭遇NPC。
  探索需要消耗少量体力，找到的物品可以用 '拾取' 收起。`
}

// =============================================================================
// Ground items
// =============================================================================

func groundKey(location string) string {
	return "ground:" + location
}

// groundItems reads the items lying at a location. Saved games decode the
// counts as float64.
func groundItems(sm *state.Manager, location string) map[string]int {
	out := map[string]int{}
	switch v := sm.Flag(groundKey(location), nil).(type) {
	case map[string]int:
		for k, n := range v {
			out[k] = n
		}
	case map[string]any:
		for k, n := range v {
			if f, ok := n.(float64); ok {
				out[k] = int(f)
			} else if i, ok := n.(int); ok {
				out[k] = i
			}
		}
	}
	return out
}

func dropOnGround(sm *state.Manager, location, item string, qty int) {
	ground := groundItems(sm, location)
	ground[item] += qty
	sm.SetFlag(groundKey(location), ground)
}

func takeFromGround(sm *state.Manager, location, item string) (int, bool) {
	ground := groundItems(sm, location)
	qty, ok := ground[item]
	if !ok || qty <= 0 {
		return 0, false
	}
	delete(ground, item)
	sm.SetFlag(groundKey(location), ground)
	return qty, true
}
