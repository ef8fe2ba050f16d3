package command

import (
	"sort"
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/items"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

// findCarried resolves an item name against the inventory. An exact name
// wins, then the first carried name containing the query.
func findCarried(p *character.Character, query string) (string, bool) {
	if p.HasItem(query) {
		return query, true
	}
	names := make([]string, 0, len(p.Inventory))
	for name := range p.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(name, query) {
			return name, true
		}
	}
	return "", false
}

// UseItemHandler consumes potions and pills. A name that is not carried but
// is a learned skill is handed to USE_SKILL, since 使用 covers both.
type UseItemHandler struct {
	BaseHandler
	content *Content
}

// NewUseItemHandler returns the USE_ITEM handler.
func NewUseItemHandler(content *Content) *UseItemHandler {
	return &UseItemHandler{
		BaseHandler: NewBaseHandler("use_item", PriorityNormal, UseItem),
		content:     content,
	}
}

func (h *UseItemHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *UseItemHandler) Handle(c *Context) Result {
	query := c.Command.Param("item")
	if query == "" {
		c.write(output.Error, "请指定要使用的物品")
		return Failure("未指定物品", true)
	}

	p := c.Player()
	name, ok := findCarried(p, query)
	if !ok {
		if _, isSpell := h.content.Spells.Get(query); isSpell && p.HasSkill(query) {
			return Redirect("施放 " + query)
		}
		c.writef(output.Error, "你没有%s", query)
		return Failure("物品不存在", true)
	}

	item, known := h.content.Items.Get(name)
	if !known || !item.Type.IsConsumable() {
		c.writef(output.Warning, "%s无法直接使用", name)
		if known && item.Type.IsEquippable() {
			c.writef(output.Info, "输入 '装备 %s' 装备它。", name)
		}
		return Failure("物品无法使用", true)
	}

	p.RemoveItem(name)
	c.writef(output.Info, "你使用了%s", name)
	switch item.Effect {
	case items.EffectHeal:
		c.writef(output.Success, "恢复了%d点生命值", p.Heal(item.Amount))
	case items.EffectMana:
		before := p.Mana
		p.Mana = min(p.Mana+item.Amount, p.MaxMana)
		c.writef(output.Success, "恢复了%d点法力值", p.Mana-before)
	case items.EffectStamina:
		before := p.Stamina
		p.RestoreStamina(item.Amount)
		c.writef(output.Success, "恢复了%d点体力", p.Stamina-before)
	case items.EffectExperience:
		levels := p.GainExperience(item.Amount)
		c.writef(output.Success, "获得了%d点修为", item.Amount)
		if levels > 0 {
			c.writef(output.Achievement, "修为精进，提升到%s第%d层", p.Realm(), p.Level)
		}
	default:
		c.write(output.Info, "似乎什么也没有发生。")
	}
	c.State.UpdateStatistic("items_used", 1)
	return Success("使用了"+name).With("item", name)
}

func (h *UseItemHandler) Help() string {
	return `使用物品命令：使用 <物品>

用法：
  使用 气血药水
  服用 修炼丹

说明：
  服用药水或丹药，立即生效。`
}

// PickUpHandler collects items lying at the current location.
type PickUpHandler struct {
	BaseHandler
	content *Content
}

// NewPickUpHandler returns the PICK_UP handler.
func NewPickUpHandler(content *Content) *PickUpHandler {
	return &PickUpHandler{
		BaseHandler: NewBaseHandler("pick_up", PriorityNormal, PickUp),
		content:     content,
	}
}

func (h *PickUpHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *PickUpHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *PickUpHandler) Handle(c *Context) Result {
	want := c.Command.Param("item")
	location := c.Location()
	ground := groundItems(c.State, location)
	if want == "" {
		c.write(output.Error, "请指定要拾取的物品")
		return Failure("未指定物品", true)
	}

	name := want
	if _, ok := ground[name]; !ok {
		for n := range ground {
			if strings.Contains(n, want) {
				name = n
				break
			}
		}
	}
	qty, ok := takeFromGround(c.State, location, name)
	if !ok {
		c.writef(output.Info, "这里没有%s", want)
		return Failure("没有该物品", true)
	}

	c.Player().AddItem(name, qty)
	c.State.UpdateStatistic("items_collected", qty)
	c.writef(output.Success, "你拾取了 %s x%d", name, qty)
	return Success("拾取成功").With("item", name).With("quantity", qty)
}

func (h *PickUpHandler) Help() string {
	return `拾取命令：拾取 <物品>

说明：
  拾取探索或战斗后留在地上的物品。`
}

// EquipHandler handles both EQUIP and UNEQUIP.
type EquipHandler struct {
	BaseHandler
	content *Content
}

// NewEquipHandler returns the EQUIP/UNEQUIP handler.
func NewEquipHandler(content *Content) *EquipHandler {
	return &EquipHandler{
		BaseHandler: NewBaseHandler("equipment", PriorityNormal, Equip, Unequip),
		content:     content,
	}
}

func (h *EquipHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *EquipHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *EquipHandler) Handle(c *Context) Result {
	query := c.Command.Param("item")
	if query == "" {
		c.write(output.Error, "请指定装备")
		return Failure("未指定物品", true)
	}
	if c.Command.Type == Unequip {
		return h.unequip(c, query)
	}

	p := c.Player()
	name, ok := findCarried(p, query)
	if !ok {
		c.writef(output.Error, "你没有%s", query)
		return Failure("物品不存在", true)
	}
	item, known := h.content.Items.Get(name)
	if !known || !item.Type.IsEquippable() {
		c.writef(output.Warning, "%s无法装备", name)
		return Failure("物品无法装备", true)
	}

	prev, _ := p.Equip(item.Slot, name)
	if prev != "" {
		c.writef(output.Info, "你卸下了%s", prev)
	}
	c.writef(output.Success, "你装备了%s", name)
	return Success("装备了"+name).With("slot", item.Slot).With("item", name)
}

func (h *EquipHandler) unequip(c *Context, query string) Result {
	p := c.Player()
	slot, ok := p.EquippedSlot(query)
	if !ok {
		// the query may name a slot
		if _, inSlot := p.Equipment[query]; inSlot {
			slot, ok = query, true
		}
	}
	if !ok {
		c.writef(output.Error, "你没有装备%s", query)
		return Failure("未装备该物品", true)
	}
	item, _ := p.Unequip(slot)
	c.writef(output.Success, "你卸下了%s", item)
	return Success("卸下了"+item).With("slot", slot).With("item", item)
}

func (h *EquipHandler) Help() string {
	return `装备命令：
  装备 <物品>  - 装备武器、护甲或符咒
  卸下 <物品>  - 卸下装备，放回背包`
}
