package command

import "testing"

func TestPatternParser(t *testing.T) {
	tests := []struct {
		input  string
		want   CommandType
		target string
		params map[string]string
	}{
		{"攻击 妖兽", Attack, "妖兽", nil},
		{"攻击", Attack, "", nil},
		{"打 妖狼", Attack, "妖狼", nil},
		{"attack wolf", Attack, "wolf", nil},
		{"使用 剑气 妖兽", UseSkill, "妖兽", map[string]string{"skill": "剑气斩"}},
		{"施放 金刚护体", UseSkill, "", map[string]string{"skill": "金刚护体"}},
		{"cast fireball on wolf", UseSkill, "wolf", map[string]string{"skill": "fireball"}},
		{"使用 红药", UseItem, "", map[string]string{"item": "气血药水"}},
		{"服用 修炼丹", UseItem, "", map[string]string{"item": "修炼丹"}},
		{"装备 铁剑", Equip, "", map[string]string{"item": "铁剑"}},
		{"卸下 铁剑", Unequip, "", map[string]string{"item": "铁剑"}},
		{"去 主城", Move, "", map[string]string{"location": "青云城"}},
		{"go to 青云山", Move, "", map[string]string{"location": "青云山"}},
		{"探索", Explore, "", nil},
		{"拾取 灵石", PickUp, "", map[string]string{"item": "灵石"}},
		{"和 李长老 说话", Talk, "李长老", nil},
		{"对话 王掌柜", Talk, "王掌柜", nil},
		{"交易", Trade, "", nil},
		{"购买 气血药水", Trade, "气血药水", nil},
		{"打坐", Cultivate, "", nil},
		{"学习 剑气斩", LearnSkill, "", map[string]string{"skill": "剑气斩"}},
		{"突破", Breakthrough, "", nil},
		{"防御", Defend, "", nil},
		{"逃跑", Flee, "", nil},
		{"STATUS", Status, "", nil},
		{"背包", Inventory, "", nil},
		{"技能", Skills, "", nil},
		{"地图", Map, "", nil},
		{"帮助 修炼", Help, "", map[string]string{"topic": "修炼"}},
		{"?", Help, "", nil},
		{"保存 slot1", Save, "", map[string]string{"slot": "slot1"}},
		{"读取", Load, "", nil},
		{"退出", Quit, "", nil},
		{"", Unknown, "", nil},
		{"飞升", Unknown, "", nil},
	}

	p := NewPatternParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := p.Parse(tt.input)
			if got.Type != tt.want {
				t.Fatalf("Parse(%q).Type = %s, want %s", tt.input, got.Type, tt.want)
			}
			if got.Target != tt.target {
				t.Errorf("Parse(%q).Target = %q, want %q", tt.input, got.Target, tt.target)
			}
			for k, v := range tt.params {
				if got.Param(k) != v {
					t.Errorf("Parse(%q).Param(%q) = %q, want %q", tt.input, k, got.Param(k), v)
				}
			}
		})
	}
}

func TestParserSuggest(t *testing.T) {
	p := NewPatternParser()
	if got := p.Suggest("攻"); len(got) != 1 || got[0] != "攻击" {
		t.Errorf("Suggest(攻) = %v", got)
	}

	p.Parse("攻击 妖狼")
	got := p.Suggest("攻")
	if len(got) != 2 || got[1] != "攻击 妖狼" {
		t.Errorf("Suggest(攻) after parse = %v", got)
	}
	if got := p.Suggest(""); len(got) != maxParserSuggest {
		t.Errorf("Suggest(\"\") returned %d entries, want %d", len(got), maxParserSuggest)
	}
}

func TestWordAlias(t *testing.T) {
	p := NewPatternParser()
	p.AddWordAlias("老李", "李长老")
	if got := p.Parse("和 老李 说话"); got.Target != "李长老" {
		t.Errorf("Target = %q, want 李长老", got.Target)
	}
}

func TestParseCommandType(t *testing.T) {
	if ct, ok := ParseCommandType("use_skill"); !ok || ct != UseSkill {
		t.Errorf("ParseCommandType(use_skill) = %s, %v", ct, ok)
	}
	if _, ok := ParseCommandType("fly"); ok {
		t.Error("ParseCommandType(fly) should fail")
	}
}
