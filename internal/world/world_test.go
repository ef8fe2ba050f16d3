package world

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocationTypeString(t *testing.T) {
	tests := []struct {
		lt   LocationType
		want string
	}{
		{LocationTypeCity, "city"},
		{LocationTypeMountain, "mountain"},
		{LocationTypeValley, "valley"},
		{LocationTypeWilderness, "wilderness"},
		{LocationTypeBeastLair, "beast_lair"},
		{LocationType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.lt.String(); got != tt.want {
			t.Errorf("LocationType(%d).String() = %q, want %q", tt.lt, got, tt.want)
		}
		if tt.want == "unknown" {
			continue
		}
		parsed, ok := ParseLocationType(tt.want)
		if !ok || parsed != tt.lt {
			t.Errorf("ParseLocationType(%q) = %v, %v", tt.want, parsed, ok)
		}
	}
}

func TestDangerLevels(t *testing.T) {
	if !LocationTypeCity.IsSafe() {
		t.Error("city should be safe")
	}
	if LocationTypeBeastLair.IsSafe() {
		t.Error("beast lair should not be safe")
	}
	if LocationTypeCity.EncounterChance() != 0 {
		t.Errorf("city encounter chance = %v, want 0", LocationTypeCity.EncounterChance())
	}
	if got := LocationTypeBeastLair.EncounterChance(); got < 0.29 || got > 0.31 {
		t.Errorf("beast lair encounter chance = %v, want 0.3", got)
	}
}

func TestDefaultWorldAliases(t *testing.T) {
	w := Default()

	loc, ok := w.Find("主城")
	if !ok || loc.Name != "青云城" {
		t.Fatalf("Find(主城) = %v, %v; want 青云城", loc, ok)
	}
	if !loc.HasExit("青云山") {
		t.Error("青云城 should connect to 青云山")
	}
	if _, ok := w.Find("天庭"); ok {
		t.Error("天庭 should not exist")
	}
	if names := w.Names(); names[0] != "青云城" || len(names) != w.Len() {
		t.Errorf("Names() = %v", names)
	}
}

func TestCultivationBonus(t *testing.T) {
	w := Default()
	tests := []struct {
		location string
		want     float64
	}{
		{"灵气洞府", 2.0},
		{"青云峰", 1.5},
		{"妖兽森林", 0.8},
		{"青云城", 1.0},
		{"青云宗修炼室", 1.3},
		{"无名小村", 1.0},
	}

	for _, tt := range tests {
		if got := w.CultivationBonus(tt.location); got != tt.want {
			t.Errorf("CultivationBonus(%q) = %v, want %v", tt.location, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	yamlData := `
order: [南山镇]
locations:
  北林:
    description: 古树成林
    type: wilderness
    exits: [南山镇]
  南山镇:
    type: city
    aliases: [小镇]
    exits: [北林]
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := w.Names(); len(got) != 2 || got[0] != "南山镇" || got[1] != "北林" {
		t.Errorf("Names() = %v, want [南山镇 北林]", got)
	}
	town, ok := w.Find("小镇")
	if !ok {
		t.Fatal("alias 小镇 not registered")
	}
	if town.Describe() != DefaultDescription {
		t.Errorf("Describe() = %q, want default", town.Describe())
	}
	forest, _ := w.Find("北林")
	if forest.Type != LocationTypeWilderness {
		t.Errorf("北林 type = %v, want wilderness", forest.Type)
	}
}

func TestLoadRejectsUnknownExit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	yamlData := `
locations:
  孤岛:
    exits: [不存在]
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "不存在") {
		t.Errorf("Load() error = %v, want unknown exit error", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
