package command

import (
	"errors"

	"github.com/google/uuid"

	"github.com/lawnchairsociety/xianmud/internal/npc"
	"github.com/lawnchairsociety/xianmud/internal/output"
	"github.com/lawnchairsociety/xianmud/internal/spells"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

const (
	attackDamage = 50
	fleeChance   = 0.5
	combatTicks  = 1
)

var (
	errNoPlayer = errors.New("没有玩家角色")
	errDead     = errors.New("你已经死亡")
)

// combatHandler is the shared base of the in-fight handlers: they only
// apply while the top context is COMBAT.
type combatHandler struct {
	BaseHandler
	content *Content
}

func newCombatHandler(name string, ct CommandType, content *Content) combatHandler {
	return combatHandler{
		BaseHandler: NewBaseHandler(name, PriorityHigh, ct),
		content:     content,
	}
}

func (h *combatHandler) CanHandle(c *Context) bool {
	return c.GameContext() == state.ContextCombat
}

func (h *combatHandler) Validate(c *Context) error {
	p := c.Player()
	if p == nil {
		return errNoPlayer
	}
	if !p.IsAlive() {
		return errDead
	}
	return nil
}

// AttackHandler performs a plain strike.
type AttackHandler struct {
	combatHandler
}

// NewAttackHandler returns the in-fight ATTACK handler.
func NewAttackHandler(content *Content) *AttackHandler {
	return &AttackHandler{newCombatHandler("attack", Attack, content)}
}

func (h *AttackHandler) Handle(c *Context) Result {
	target := c.Command.Target
	if target == "" {
		c.write(output.Info, "自动选择最近的敌人作为目标")
		target = enemyName(c)
	}
	c.writef(output.Combat, "你向%s发起攻击！", target)

	if !strike(c, h.content, attackDamage) {
		enemyTurn(c, h.content)
	}
	return Success("攻击成功").With("damage", attackDamage).With("target", target)
}

func (h *AttackHandler) Help() string {
	return `攻击命令：攻击 [目标]

用法：
  攻击 妖兽      - 攻击指定目标
  攻击          - 自动选择最近的敌人

说明：
  在战斗中对目标进行普通攻击。如果不指定目标，会自动选择最近的敌人。`
}

// DefendHandler halves the next hit.
type DefendHandler struct {
	combatHandler
}

// NewDefendHandler returns the DEFEND handler.
func NewDefendHandler(content *Content) *DefendHandler {
	return &DefendHandler{newCombatHandler("defend", Defend, content)}
}

func (h *DefendHandler) Handle(c *Context) Result {
	c.write(output.Combat, "你摆出防御姿态，准备抵挡攻击。")
	c.State.UpdateContextData(map[string]any{"defending": true})
	enemyTurn(c, h.content)
	return Success("进入防御状态")
}

func (h *DefendHandler) Help() string {
	return `防御命令：防御

说明：
  进入防御姿态，下一次受到的伤害减半。`
}

// FleeHandler tries to leave the fight.
type FleeHandler struct {
	combatHandler
}

// NewFleeHandler returns the FLEE handler.
func NewFleeHandler(content *Content) *FleeHandler {
	return &FleeHandler{newCombatHandler("flee", Flee, content)}
}

func (h *FleeHandler) Handle(c *Context) Result {
	if h.content.Rand.Float64() < fleeChance {
		enemyID, _ := c.State.ContextData()["enemy_id"].(string)
		c.State.EndCombat(map[string]any{"result": "fled"})
		if enemyID != "" {
			c.State.RemoveNPC(enemyID)
		}
		c.write(output.Success, "你成功逃离了战斗！")
		return Success("逃跑成功")
	}

	c.write(output.Warning, "逃跑失败！")
	enemyTurn(c, h.content)
	return Failure("逃跑失败", true)
}

func (h *FleeHandler) Help() string {
	return `逃跑命令：逃跑

说明：
  尝试逃离战斗。逃跑失败会浪费本回合的行动机会。`
}

// UseSkillHandler uses a learned technique in a fight.
type UseSkillHandler struct {
	combatHandler
}

// NewUseSkillHandler returns the USE_SKILL handler.
func NewUseSkillHandler(content *Content) *UseSkillHandler {
	return &UseSkillHandler{newCombatHandler("use_skill", UseSkill, content)}
}

func (h *UseSkillHandler) Handle(c *Context) Result {
	name := c.Command.Param("skill")
	if name == "" {
		c.write(output.Error, "请指定要使用的技能")
		return Failure("未指定技能", true)
	}

	p := c.Player()
	spell, ok := h.content.Spells.Get(name)
	if !ok || !p.HasSkill(name) {
		c.writef(output.Error, "你还没有学会技能：%s", name)
		return Failure("技能不存在", true)
	}
	if !spell.UsableInCombat() {
		c.writef(output.Error, "%s无法在战斗中使用", name)
		return Failure("技能无法在战斗中使用", true)
	}
	if !p.UseMana(spell.ManaCost) {
		c.writef(output.Error, "法力值不足，需要%d点", spell.ManaCost)
		return Failure("法力值不足", true)
	}

	if target := c.Command.Target; target != "" {
		c.writef(output.Combat, "你对%s使用了%s！", target, name)
	} else {
		c.writef(output.Combat, "你使用了%s！", name)
	}

	won := false
	switch spell.Effect {
	case spells.EffectDamage:
		won = strike(c, h.content, spell.Amount)
	case spells.EffectHeal:
		c.writef(output.Success, "恢复了%d点生命值", p.Heal(spell.Amount))
	case spells.EffectShield:
		c.State.UpdateContextData(map[string]any{"defending": true})
		c.write(output.Combat, "护体真气环绕周身。")
	}
	if !won {
		enemyTurn(c, h.content)
	}
	return Success("技能使用成功").With("skill", name)
}

func (h *UseSkillHandler) Help() string {
	return `使用技能命令：使用 <技能名> [目标]

用法：
  使用 剑气斩 妖兽    - 对指定目标使用技能
  施放 金刚护体       - 使用自身增益技能

说明：
  使用已学会的技能。使用技能会消耗法力值。`
}

// EncounterHandler picks a fight with a beast outside combat, then hands
// the attack itself to AttackHandler through a redirect.
type EncounterHandler struct {
	BaseHandler
	content *Content
}

// NewEncounterHandler returns the out-of-fight ATTACK handler.
func NewEncounterHandler(content *Content) *EncounterHandler {
	return &EncounterHandler{
		BaseHandler: NewBaseHandler("encounter", PriorityLow, Attack),
		content:     content,
	}
}

func (h *EncounterHandler) CanHandle(c *Context) bool {
	return !c.State.IsInCombat()
}

func (h *EncounterHandler) Validate(c *Context) error {
	p := c.Player()
	if p == nil {
		return errNotStarted
	}
	if !p.IsAlive() {
		return errDead
	}
	return nil
}

func (h *EncounterHandler) Handle(c *Context) Result {
	location := c.Location()
	if loc, ok := h.content.World.Find(location); ok && loc.Type.IsSafe() {
		c.write(output.Warning, "城中禁止私斗。")
		return Failure("此处无法战斗", true)
	}

	beasts := h.content.NPCs.Beasts(location)
	target := c.Command.Target
	var beast *npc.NPC
	for _, b := range beasts {
		if target == "" || b.Name == target || b.ID == target {
			beast = b
			break
		}
	}
	if beast == nil {
		if target == "" {
			c.write(output.Info, "这里没有可以攻击的目标。")
		} else {
			c.writef(output.Info, "这里没有%s。", target)
		}
		return Failure("没有目标", true)
	}

	startFight(c, beast)
	return Redirect("攻击 " + beast.Name)
}

func (h *EncounterHandler) Help() string {
	return `遭遇：在野外输入 '攻击 <妖兽>' 主动挑起战斗。`
}

// =============================================================================
// Fight mechanics
// =============================================================================

// startFight enters COMBAT against a beast and returns the combat id.
func startFight(c *Context, beast *npc.NPC) string {
	id := uuid.NewString()
	c.State.StartCombat(id)
	c.State.UpdateContextData(map[string]any{
		"enemy_id":         beast.ID,
		"enemy_name":       beast.Name,
		"enemy_health":     beast.Health,
		"enemy_max_health": beast.Health,
		"round":            0,
	})
	c.State.AddNPC(beast.Character())
	c.writef(output.Combat, "%s向你扑来，战斗开始！", beast.Name)
	return id
}

func enemyName(c *Context) string {
	if name, ok := c.State.ContextData()["enemy_name"].(string); ok && name != "" {
		return name
	}
	return "敌人"
}

// intData reads a number from context data. Loaded saves hold float64.
func intData(data map[string]any, key string) (int, bool) {
	return toInt(data[key])
}

func toInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// strike damages the tracked enemy and reports whether it fell. Fights
// without a tracked enemy only narrate the damage.
func strike(c *Context, content *Content, damage int) bool {
	c.writef(output.Combat, "造成了 %d 点伤害！", damage)
	data := c.State.ContextData()
	hp, tracked := intData(data, "enemy_health")
	if !tracked {
		return false
	}
	hp = max(hp-damage, 0)
	round, _ := intData(data, "round")
	c.State.UpdateContextData(map[string]any{"enemy_health": hp, "round": round + 1})
	c.State.AdvanceTime(combatTicks)
	if hp == 0 {
		victory(c, content)
		return true
	}
	if maxHP, ok := intData(data, "enemy_max_health"); ok {
		c.writef(output.Combat, "%s剩余气血 %d/%d", enemyName(c), hp, maxHP)
	}
	return false
}

// enemyTurn lets the tracked enemy hit back.
func enemyTurn(c *Context, content *Content) {
	data := c.State.ContextData()
	id, _ := data["enemy_id"].(string)
	beast, ok := content.NPCs.Get(id)
	if !ok || beast.Damage <= 0 {
		return
	}

	damage := max(beast.Damage+randRange(content.Rand, -2, 2), 1)
	if defending, _ := data["defending"].(bool); defending {
		damage = max(damage/2, 1)
		c.State.UpdateContextData(map[string]any{"defending": false})
		c.write(output.Combat, "你挡住了大半攻势。")
	}

	p := c.Player()
	taken := p.TakeDamage(damage)
	c.writef(output.Combat, "%s对你造成了 %d 点伤害！", beast.Name, taken)
	if !p.IsAlive() {
		defeat(c, content, beast)
	}
}

func victory(c *Context, content *Content) {
	data := c.State.ContextData()
	id, _ := data["enemy_id"].(string)
	name := enemyName(c)
	round, _ := intData(data, "round")

	c.State.EndCombat(map[string]any{"result": "win", "enemy": name, "rounds": round})
	c.State.RemoveNPC(id)
	c.State.UpdateStatistic("enemies_defeated", 1)
	c.writef(output.Success, "你击败了%s！", name)

	beast, ok := content.NPCs.Get(id)
	if !ok {
		return
	}
	p := c.Player()
	if beast.Experience > 0 {
		levels := p.GainExperience(beast.Experience)
		c.writef(output.Success, "获得了 %d 点修为", beast.Experience)
		if levels > 0 {
			c.writef(output.Achievement, "修为精进，提升到%s第%d层", p.Realm(), p.Level)
		}
	}
	location := c.Location()
	for _, l := range beast.Loot {
		if content.Rand.Float64() < l.Chance {
			dropOnGround(c.State, location, l.ItemName, l.Count)
			c.writef(output.Info, "%s掉落了 %s x%d", name, l.ItemName, l.Count)
		}
	}
	if c.State.AddAchievement("first_victory") {
		c.write(output.Achievement, "解锁成就：初战告捷")
	}
}

// defeat ends the fight and carries the player to the first safe location
// with a sliver of health.
func defeat(c *Context, content *Content, beast *npc.NPC) {
	c.State.EndCombat(map[string]any{"result": "defeat", "enemy": beast.Name})
	c.State.RemoveNPC(beast.ID)
	c.State.UpdateStatistic("defeats", 1)

	p := c.Player()
	p.Health = max(p.MaxHealth/10, 1)
	c.write(output.Error, "你被击败了……")
	if home, ok := safeHaven(content); ok {
		c.State.SetLocation(home)
		c.writef(output.Narrative, "醒来时，你已被人送回%s。", home)
	}
}

func safeHaven(content *Content) (string, bool) {
	for _, name := range content.World.Names() {
		if loc, ok := content.World.Find(name); ok && loc.Type.IsSafe() {
			return loc.Name, true
		}
	}
	return "", false
}
