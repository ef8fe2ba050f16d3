package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Parser turns preprocessed text into a ParsedCommand.
type Parser interface {
	Parse(text string) ParsedCommand
	Suggest(partial string) []string
	HelpText() string
}

type pattern struct {
	re  *regexp.Regexp
	typ CommandType
}

// Patterns are tried in order and the first match wins, so verbs that share
// a leading character with another verb (打坐 and 打) come first.
var defaultPatterns = []struct {
	expr string
	typ  CommandType
}{
	{`^(帮助|help|\?)(?:\s+(?P<topic>\S+))?`, Help},
	{`^(保存|存档|save)(?:\s+(?P<slot>\S+))?`, Save},
	{`^(读取|载入|load)(?:\s+(?P<slot>\S+))?`, Load},
	{`^(退出|离开|quit|exit)`, Quit},

	{`^(状态|属性|信息|info|status)`, Status},
	{`^(背包|物品|inventory|items)`, Inventory},
	{`^(技能|功法|skills)`, Skills},
	{`^(地图|位置|map|location)`, Map},

	{`^(修炼|打坐|练功|修行|cultivate|meditate|practice)`, Cultivate},
	{`^(学习|修习)\s*(?P<skill>.+?)(?:\s|$)`, LearnSkill},
	{`^learn\s+(?P<skill>.+)`, LearnSkill},
	{`^(突破|进阶|晋级|breakthrough)`, Breakthrough},

	{`^(防御|防守|格挡|闪避|defend|block|dodge)`, Defend},
	{`^(逃跑|逃走|撤退|跑路|flee|run|escape)`, Flee},

	{`^(攻击|打|揍|击杀)(?:\s*(?P<target>.+?))?(?:\s|$)`, Attack},
	{`^(attack|hit|strike)(?:\s+(?P<target>\S+))?`, Attack},

	{`^(使用|施放|释放)\s*(?P<skill>\S+?)\s+(?:攻击|对付|打击)?\s*(?P<target>\S+)`, UseSkill},
	{`^(施放|释放)\s*(?P<skill>\S+)`, UseSkill},
	{`^(cast)\s+(?P<skill>\S+)(?:\s+(?:on\s+)?(?P<target>\S+))?`, UseSkill},

	{`^(使用|服用|吃)\s*(?P<item>.+?)(?:\s|$)`, UseItem},
	{`^use\s+(?P<item>\S+)`, UseItem},
	{`^(装备|穿上|佩戴|equip)\s*(?P<item>.+?)(?:\s|$)`, Equip},
	{`^(卸下|脱下|取下|unequip)\s*(?P<item>.+?)(?:\s|$)`, Unequip},

	{`^(去|前往|移动到)\s*(?P<location>.+?)(?:\s|$)`, Move},
	{`^(go|move)\s+(?:to\s+)?(?P<location>.+)`, Move},
	{`^(探索|查看|观察|explore|search)(?:\s*(?P<target>.+?))?(?:\s|$)`, Explore},

	{`^(和|与|跟)\s*(?P<target>.+?)\s*(说话|交谈|对话)`, Talk},
	{`^(对话|交谈|说话)\s*(?P<target>.+?)(?:\s|$)`, Talk},
	{`^(talk|speak)\s+(?:to\s+|with\s+)?(?P<target>\S+)`, Talk},
	{`^(交易|商店|购买|trade|shop)(?:\s*(?P<target>.+?))?(?:\s|$)`, Trade},
	{`^(拾取|捡起|获取)\s*(?P<item>.+?)(?:\s|$)`, PickUp},
	{`^(pick\s*up|take)\s+(?P<item>.+)`, PickUp},
}

// Word aliases are applied to extracted parameter values.
var defaultWordAliases = map[string]string{
	"剑气": "剑气斩",
	"火球": "火球术",
	"治疗": "治疗术",
	"疗伤": "治疗术",
	"红药": "气血药水",
	"蓝药": "灵力药水",
	"血瓶": "气血药水",
	"蓝瓶": "灵力药水",
	"主城": "青云城",
	"城里": "青云城",
	"野外": "城外荒野",
}

var basicCommands = []string{
	"攻击", "使用", "防御", "逃跑",
	"修炼", "状态", "背包", "技能",
	"地图", "帮助",
}

const (
	parserHistorySize = 100
	maxParserSuggest  = 5
)

// PatternParser parses Chinese and English verbs with a regex table.
type PatternParser struct {
	patterns []pattern
	aliases  map[string]string
	history  []ParsedCommand
}

// NewPatternParser returns a parser with the built-in verb table.
func NewPatternParser() *PatternParser {
	p := &PatternParser{aliases: make(map[string]string, len(defaultWordAliases))}
	for _, dp := range defaultPatterns {
		p.patterns = append(p.patterns, pattern{
			re:  regexp.MustCompile(`(?i)` + dp.expr),
			typ: dp.typ,
		})
	}
	for k, v := range defaultWordAliases {
		p.aliases[k] = v
	}
	return p
}

// AddWordAlias maps a parameter value to its canonical name.
func (p *PatternParser) AddWordAlias(word, canonical string) {
	p.aliases[word] = canonical
}

// Parse matches text against the verb table.
func (p *PatternParser) Parse(text string) ParsedCommand {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedCommand{Type: Unknown, RawText: text, Parameters: map[string]string{}}
	}

	for _, pt := range p.patterns {
		m := pt.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range pt.re.SubexpNames() {
			if name == "" || i >= len(m) {
				continue
			}
			if v := strings.TrimSpace(m[i]); v != "" {
				params[name] = p.canonical(v)
			}
		}
		cmd := ParsedCommand{
			Type:       pt.typ,
			Target:     params["target"],
			Parameters: params,
			RawText:    text,
			Confidence: 0.9,
		}
		p.remember(cmd)
		return cmd
	}

	return ParsedCommand{Type: Unknown, RawText: text, Parameters: map[string]string{}}
}

func (p *PatternParser) canonical(word string) string {
	if c, ok := p.aliases[word]; ok {
		return c
	}
	return word
}

func (p *PatternParser) remember(cmd ParsedCommand) {
	p.history = append(p.history, cmd)
	if n := len(p.history); n > parserHistorySize {
		p.history = append([]ParsedCommand(nil), p.history[n-parserHistorySize:]...)
	}
}

// Suggest returns up to five basic verbs and recently parsed inputs that
// start with partial.
func (p *PatternParser) Suggest(partial string) []string {
	var candidates []string
	for _, c := range basicCommands {
		if strings.HasPrefix(c, partial) {
			candidates = append(candidates, c)
		}
	}
	start := max(len(p.history)-10, 0)
	for _, cmd := range p.history[start:] {
		if strings.HasPrefix(cmd.RawText, partial) {
			candidates = append(candidates, cmd.RawText)
		}
	}
	out := dedupe(candidates)
	if len(out) > maxParserSuggest {
		out = out[:maxParserSuggest]
	}
	return out
}

type helpEntry struct {
	usage string
	desc  string
}

var helpCategories = []struct {
	name    string
	entries []helpEntry
}{
	{"战斗命令", []helpEntry{
		{"攻击 <目标>", "对目标进行普通攻击"},
		{"使用 <技能> [目标]", "使用技能"},
		{"防御", "进入防御姿态"},
		{"逃跑", "尝试逃离战斗"},
	}},
	{"探索命令", []helpEntry{
		{"去 <地点>", "前往指定地点"},
		{"探索", "探索当前区域"},
		{"拾取 <物品>", "拾取物品"},
	}},
	{"社交命令", []helpEntry{
		{"和 <NPC> 说话", "与NPC交谈"},
		{"交易 [NPC]", "与商人交易"},
	}},
	{"修炼命令", []helpEntry{
		{"修炼", "进行修炼"},
		{"学习 <技能>", "学习新技能"},
		{"突破", "尝试境界突破"},
	}},
	{"信息命令", []helpEntry{
		{"状态", "查看角色状态"},
		{"背包", "查看物品"},
		{"技能", "查看技能列表"},
		{"地图", "查看地图"},
	}},
	{"系统命令", []helpEntry{
		{"保存 [存档名]", "保存游戏"},
		{"读取 [存档名]", "读取存档"},
		{"帮助", "显示帮助"},
		{"退出", "退出游戏"},
	}},
}

// HelpText returns the categorized command listing.
func (p *PatternParser) HelpText() string {
	var sb strings.Builder
	sb.WriteString("=== 游戏命令帮助 ===\n")
	for _, cat := range helpCategories {
		fmt.Fprintf(&sb, "\n【%s】\n", cat.name)
		for _, e := range cat.entries {
			fmt.Fprintf(&sb, "  %-20s - %s\n", e.usage, e.desc)
		}
	}
	sb.WriteString("\n提示：<> 表示必需参数，[] 表示可选参数")
	return sb.String()
}

// dedupe drops repeated strings, keeping first occurrences in order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
