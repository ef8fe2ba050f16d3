package command

import (
	"fmt"
	"math"
	"strings"

	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

const (
	cultivateStaminaCost = 20
	cultivateTicks       = 10
	breakthroughTicks    = 20

	baseBreakthroughRate = 0.6
	maxBreakthroughRate  = 0.95
)

var cultivationEvents = []struct {
	text  string
	bonus int
}{
	{"你感觉到一股清凉的灵气涌入体内！", 50},
	{"你突然灵光一闪，对功法有了新的领悟！", 30},
	{"你的经脉在修炼中得到了拓宽！", 40},
}

// CultivateHandler meditates for experience. Output scales with the
// location's cultivation bonus.
type CultivateHandler struct {
	BaseHandler
	content *Content
}

// NewCultivateHandler returns the CULTIVATE handler.
func NewCultivateHandler(content *Content) *CultivateHandler {
	return &CultivateHandler{
		BaseHandler: NewBaseHandler("cultivation", PriorityNormal, Cultivate),
		content:     content,
	}
}

func (h *CultivateHandler) CanHandle(c *Context) bool {
	ct := c.GameContext()
	return ct != state.ContextCombat && ct != state.ContextDialogue
}

func (h *CultivateHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *CultivateHandler) Handle(c *Context) Result {
	p := c.Player()
	if p.Stamina < cultivateStaminaCost {
		c.write(output.Error, "体力不足，无法修炼")
		c.write(output.Info, "你需要休息一下恢复体力")
		return Failure("体力不足", true)
	}

	location := c.Location()
	bonus := h.content.World.CultivationBonus(location)
	c.State.PushContext(state.ContextCultivation, map[string]any{"location": location})
	defer c.State.PopContext()

	c.write(output.Narrative, "你盘膝而坐，开始运转功法...")
	p.ConsumeStamina(cultivateStaminaCost)

	r := h.content.Rand
	gained := int(math.Round(float64(randRange(r, 10, 20)) * bonus))
	switch {
	case bonus > 1:
		c.writef(output.Info, "此地灵气充沛，修炼效率提升%d%%", int(math.Round((bonus-1)*100)))
	case bonus < 1:
		c.writef(output.Warning, "此地煞气弥漫，修炼效率降低%d%%", int(math.Round((1-bonus)*100)))
	}
	if r.Float64() < 0.1 {
		ev := pick(r, cultivationEvents)
		c.write(output.Achievement, ev.text)
		gained += ev.bonus
	}

	levels := p.GainExperience(gained)
	c.writef(output.Success, "修炼完成，获得了 %d 点修为", gained)
	if levels > 0 {
		c.writef(output.Achievement, "修为精进，提升到%s第%d层", p.Realm(), p.Level)
	}

	c.State.UpdateStatistic("cultivation_times", 1)
	c.State.UpdateStatistic("total_cultivation_exp", gained)
	c.State.AdvanceTime(cultivateTicks)

	if p.CanBreakthrough() {
		c.write(output.Info, "你感觉到瓶颈松动，已满足突破条件，输入 '突破' 尝试晋升境界。")
	}
	return Success("修炼成功").With("exp_gained", gained).With("bonus", bonus)
}

func (h *CultivateHandler) Help() string {
	return `修炼命令：修炼

说明：
  进行打坐修炼，消耗体力获得修为值。
  不同地点的修炼效率不同，灵气浓郁的地方修炼效果更好。`
}

// LearnSkillHandler teaches a spell once the level requirement is met.
type LearnSkillHandler struct {
	BaseHandler
	content *Content
}

// NewLearnSkillHandler returns the LEARN_SKILL handler.
func NewLearnSkillHandler(content *Content) *LearnSkillHandler {
	return &LearnSkillHandler{
		BaseHandler: NewBaseHandler("learn_skill", PriorityNormal, LearnSkill),
		content:     content,
	}
}

func (h *LearnSkillHandler) CanHandle(c *Context) bool {
	return c.GameContext() != state.ContextCombat
}

func (h *LearnSkillHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

func (h *LearnSkillHandler) Handle(c *Context) Result {
	name := c.Command.Param("skill")
	if name == "" {
		c.write(output.Error, "请指定要学习的技能")
		if learnable := h.content.Spells.Learnable(c.Player().TotalLevel()); len(learnable) > 0 {
			names := make([]string, 0, len(learnable))
			for _, s := range learnable {
				names = append(names, s.Name)
			}
			c.writef(output.Info, "可以学习的技能：%s", strings.Join(names, "、"))
		}
		return Failure("未指定技能", true)
	}

	spell, ok := h.content.Spells.Get(name)
	if !ok {
		c.writef(output.Error, "未知的技能：%s", name)
		return Failure("技能不存在", true)
	}

	p := c.Player()
	if p.HasSkill(spell.Name) {
		c.writef(output.Info, "你已经学会了%s", spell.Name)
		return Failure("已学会该技能", true)
	}
	if p.TotalLevel() < spell.Level {
		c.writef(output.Error, "等级不足，需要%d级", spell.Level)
		return Failure("等级不足", true)
	}

	p.LearnSkill(spell.Name)
	c.State.UpdateStatistic("skills_learned", 1)
	c.writef(output.Success, "成功学会了%s！", spell.Name)
	c.write(output.Info, spell.Description)
	return Success("学会"+spell.Name).With("skill", spell.Name)
}

func (h *LearnSkillHandler) Help() string {
	return `学习技能命令：学习 <技能名>

用法：
  学习 剑气斩
  学习 金刚护体

说明：
  学习新的技能。需要满足等级要求。`
}

// BreakthroughHandler attempts to advance to the next realm.
type BreakthroughHandler struct {
	BaseHandler
	content *Content
}

// NewBreakthroughHandler returns the BREAKTHROUGH handler.
func NewBreakthroughHandler(content *Content) *BreakthroughHandler {
	return &BreakthroughHandler{
		BaseHandler: NewBaseHandler("breakthrough", PriorityNormal, Breakthrough),
		content:     content,
	}
}

func (h *BreakthroughHandler) CanHandle(c *Context) bool {
	ct := c.GameContext()
	return ct != state.ContextCombat && ct != state.ContextDialogue
}

func (h *BreakthroughHandler) Validate(c *Context) error {
	if c.Player() == nil {
		return errNotStarted
	}
	return nil
}

// breakthroughRate is the success chance: a base rate, raised by the
// conditions that were required to attempt at all and by full stamina.
func breakthroughRate(stamina, maxStamina int) float64 {
	rate := baseBreakthroughRate + 0.25 + 0.1
	if stamina >= maxStamina {
		rate += 0.1
	}
	return min(rate, maxBreakthroughRate)
}

func (h *BreakthroughHandler) Handle(c *Context) Result {
	p := c.Player()
	staminaReady := p.Stamina*10 >= p.MaxStamina*8
	if !p.CanBreakthrough() || !staminaReady {
		c.write(output.Error, "尚未满足突破条件")
		var missing []string
		if p.Level < 9 {
			missing = append(missing, fmt.Sprintf("需要达到%s第9层", p.Realm()))
		} else if !p.CanBreakthrough() {
			missing = append(missing, "修为尚未圆满")
		}
		if !staminaReady {
			missing = append(missing, "体力需要保持在80%以上")
		}
		for _, m := range missing {
			c.write(output.Info, m)
		}
		return Failure("条件不足", true)
	}

	realm := p.Realm()
	c.State.PushContext(state.ContextCultivation, map[string]any{"breakthrough": true})
	defer c.State.PopContext()
	c.writef(output.Narrative, "你凝聚全身灵力，冲击%s的瓶颈...", realm)

	rate := breakthroughRate(p.Stamina, p.MaxStamina)
	c.State.AdvanceTime(breakthroughTicks)
	if h.content.Rand.Float64() < rate {
		p.Breakthrough()
		c.State.UpdateStatistic("breakthroughs", 1)
		c.writef(output.Achievement, "突破成功！你从%s晋升到了%s！", realm, p.Realm())
		if c.State.AddAchievement("first_breakthrough") {
			c.write(output.Achievement, "解锁成就：初窥门径")
		}
		return Success("突破成功").With("realm", p.Realm()).With("rate", rate)
	}

	p.Health = max(p.Health/2, 1)
	p.Experience = max(p.Experience-p.Experience/5, 0)
	c.write(output.Error, "突破失败！灵力反噬，你受了内伤。")
	c.State.UpdateStatistic("breakthrough_failures", 1)
	return Failure("突破失败", true)
}

func (h *BreakthroughHandler) Help() string {
	return `突破命令：突破

说明：
  尝试突破到更高的境界。需要满足：
  - 达到当前境界第9层
  - 修为圆满
  - 体力充足（>80%）
  突破成功会大幅提升属性，失败则会受到反噬。`
}
