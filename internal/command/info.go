package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/character"
	"github.com/lawnchairsociety/xianmud/internal/gametime"
	"github.com/lawnchairsociety/xianmud/internal/output"
)

// infoHandler is the base of read-only queries. They work in any context.
type infoHandler struct {
	BaseHandler
	content *Content
}

func newInfoHandler(name string, ct CommandType, content *Content) infoHandler {
	return infoHandler{
		BaseHandler: NewBaseHandler(name, PriorityNormal, ct),
		content:     content,
	}
}

func (h *infoHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

// StatusHandler shows the character sheet.
type StatusHandler struct {
	infoHandler
}

// NewStatusHandler returns the STATUS handler.
func NewStatusHandler(content *Content) *StatusHandler {
	return &StatusHandler{newInfoHandler("status", Status, content)}
}

func (h *StatusHandler) Handle(c *Context) Result {
	p := c.Player()
	clock := gametime.At(c.State.GameTime())

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n", p.Name)
	fmt.Fprintf(&sb, "境界：%s 第%d层\n", p.Realm(), p.Level)
	fmt.Fprintf(&sb, "修为：%d/%d\n", p.Experience, character.ExperiencePerLevel)
	fmt.Fprintf(&sb, "气血：%d/%d\n", p.Health, p.MaxHealth)
	fmt.Fprintf(&sb, "法力：%d/%d\n", p.Mana, p.MaxMana)
	fmt.Fprintf(&sb, "体力：%d/%d\n", p.Stamina, p.MaxStamina)
	fmt.Fprintf(&sb, "位置：%s\n", c.Location())
	fmt.Fprintf(&sb, "时间：%s（%s）", clock, clock.TimeOfDay())
	if len(p.Equipment) > 0 {
		slots := make([]string, 0, len(p.Equipment))
		for slot := range p.Equipment {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		equipped := make([]string, 0, len(slots))
		for _, slot := range slots {
			equipped = append(equipped, p.Equipment[slot])
		}
		fmt.Fprintf(&sb, "\n装备：%s", strings.Join(equipped, "、"))
	}
	if c.State.IsInCombat() {
		sb.WriteString("\n状态：战斗中")
	}
	c.write(output.Info, sb.String())

	return Success("状态查询").
		With("realm", p.Realm()).
		With("level", p.Level).
		With("game_time", clock.String())
}

func (h *StatusHandler) Help() string {
	return "状态：查看角色境界、属性、位置与时辰。"
}

// InventoryHandler lists carried items.
type InventoryHandler struct {
	infoHandler
}

// NewInventoryHandler returns the INVENTORY handler.
func NewInventoryHandler(content *Content) *InventoryHandler {
	return &InventoryHandler{newInfoHandler("inventory", Inventory, content)}
}

func (h *InventoryHandler) Handle(c *Context) Result {
	p := c.Player()
	if len(p.Inventory) == 0 {
		c.write(output.Info, "你的背包空空如也。")
		return Success("背包为空").With("count", 0)
	}

	names := make([]string, 0, len(p.Inventory))
	for name := range p.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("=== 背包 ===")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n  %s x%d", name, p.Inventory[name])
		if item, ok := h.content.Items.Get(name); ok && item.Description != "" {
			fmt.Fprintf(&sb, "  %s", item.Description)
		}
	}
	c.write(output.Info, sb.String())
	return Success("背包查询").With("count", len(names))
}

func (h *InventoryHandler) Help() string {
	return "背包：查看携带的物品。"
}

// SkillsHandler lists learned skills and what can be learned next.
type SkillsHandler struct {
	infoHandler
}

// NewSkillsHandler returns the SKILLS handler.
func NewSkillsHandler(content *Content) *SkillsHandler {
	return &SkillsHandler{newInfoHandler("skills", Skills, content)}
}

func (h *SkillsHandler) Handle(c *Context) Result {
	p := c.Player()
	var sb strings.Builder
	sb.WriteString("=== 技能 ===")
	if len(p.Skills) == 0 {
		sb.WriteString("\n  尚未学会任何技能")
	}
	for _, name := range p.Skills {
		if s, ok := h.content.Spells.Get(name); ok {
			fmt.Fprintf(&sb, "\n  %s（法力 %d）", s.Name, s.ManaCost)
		} else {
			fmt.Fprintf(&sb, "\n  %s", name)
		}
	}

	var next []string
	for _, s := range h.content.Spells.Learnable(p.TotalLevel()) {
		if !p.HasSkill(s.Name) {
			next = append(next, s.Name)
		}
	}
	if len(next) > 0 {
		fmt.Fprintf(&sb, "\n可以学习：%s", strings.Join(next, "、"))
	}
	c.write(output.Info, sb.String())
	return Success("技能查询").With("skills", append([]string(nil), p.Skills...))
}

func (h *SkillsHandler) Help() string {
	return "技能：查看已学会的技能和可以学习的技能。"
}

// MapHandler shows the current location and where one can go from it.
type MapHandler struct {
	infoHandler
}

// NewMapHandler returns the MAP handler.
func NewMapHandler(content *Content) *MapHandler {
	return &MapHandler{newInfoHandler("map", Map, content)}
}

// Validate allows the map before a character exists.
func (h *MapHandler) Validate(*Context) error {
	return nil
}

func (h *MapHandler) Handle(c *Context) Result {
	here := c.Location()
	var sb strings.Builder
	fmt.Fprintf(&sb, "当前位置：%s", here)

	loc, ok := h.content.World.Find(here)
	if !ok {
		fmt.Fprintf(&sb, "\n已知地点：%s", strings.Join(h.content.World.Names(), "、"))
		c.write(output.Info, sb.String())
		return Success("地图查询")
	}
	if loc.Type.IsSafe() {
		sb.WriteString("（安全）")
	} else if d := loc.Type.DangerLevel(); d > 0 {
		fmt.Fprintf(&sb, "（危险%s）", strings.Repeat("★", d))
	}
	if len(loc.Exits) > 0 {
		fmt.Fprintf(&sb, "\n可以前往：%s", strings.Join(loc.Exits, "、"))
	}
	if ground := groundItems(c.State, here); len(ground) > 0 {
		names := make([]string, 0, len(ground))
		for name := range ground {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&sb, "\n地上有：%s", strings.Join(names, "、"))
	}
	c.write(output.Info, sb.String())
	return Success("地图查询").With("exits", append([]string(nil), loc.Exits...))
}

func (h *MapHandler) Help() string {
	return "地图：查看当前位置和可以前往的地点。"
}

// HelpHandler answers HELP from the topic file, falling back to the
// handlers' own help text for a command type name.
type HelpHandler struct {
	BaseHandler
	content   *Content
	processor *Processor
}

// NewHelpHandler returns the HELP handler.
func NewHelpHandler(content *Content, p *Processor) *HelpHandler {
	return &HelpHandler{
		BaseHandler: NewBaseHandler("help", PriorityNormal, Help),
		content:     content,
		processor:   p,
	}
}

func (h *HelpHandler) Handle(c *Context) Result {
	topic := c.Command.Param("topic")
	isAdmin := c.Source == SourceSystem

	var text string
	switch {
	case h.content.Help == nil:
		ct, _ := ParseCommandType(topic)
		if topic == "" {
			ct = ""
		}
		text = h.processor.Help(ct)
	case topic == "":
		text = h.content.Help.GetHelpText("", isAdmin)
	case h.content.Help.GetTopic(topic) != "":
		text = h.content.Help.GetTopic(topic)
	default:
		if ct, ok := ParseCommandType(strings.ToLower(topic)); ok && ct != Unknown {
			text = h.processor.Help(ct)
		} else {
			text = h.content.Help.GetHelpText(topic, isAdmin)
		}
	}
	c.write(output.Info, strings.TrimRight(text, "\n"))
	return Success("帮助").With("topic", topic)
}

func (h *HelpHandler) Help() string {
	return "帮助 [主题]：查看命令说明，例如 '帮助 修炼'。"
}
