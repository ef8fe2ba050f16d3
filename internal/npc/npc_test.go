package npc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindByIDOrName(t *testing.T) {
	r := Default()

	byID, ok := r.Find("elder_li")
	if !ok || byID.Name != "李长老" {
		t.Fatalf("Find(elder_li) = %v, %v", byID, ok)
	}
	byName, ok := r.Find("李长老")
	if !ok || byName != byID {
		t.Errorf("Find(李长老) = %v, %v; want the same NPC", byName, ok)
	}
	if _, ok := r.Find("无名氏"); ok {
		t.Error("Find(无名氏) should fail")
	}
}

func TestAtLocationAndBeasts(t *testing.T) {
	r := Default()

	town := r.AtLocation("青云城")
	if len(town) != 2 {
		t.Fatalf("AtLocation(青云城) = %d NPCs, want 2", len(town))
	}
	if beasts := r.Beasts("青云城"); len(beasts) != 0 {
		t.Errorf("Beasts(青云城) = %d, want 0", len(beasts))
	}
	forest := r.Beasts("妖兽森林")
	if len(forest) != 1 || forest[0].Name != "妖兽" {
		t.Errorf("Beasts(妖兽森林) = %v", forest)
	}
}

func TestLineCycles(t *testing.T) {
	n := &NPC{Dialogue: []string{"一", "二"}}
	tests := []struct {
		i    int
		want string
	}{
		{0, "一"},
		{1, "二"},
		{2, "一"},
		{-1, "二"},
	}
	for _, tt := range tests {
		if got := n.Line(tt.i); got != tt.want {
			t.Errorf("Line(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
	if got := (&NPC{}).Line(0); got != "……" {
		t.Errorf("silent NPC Line = %q", got)
	}
}

func TestCharacter(t *testing.T) {
	r := Default()
	beast, _ := r.Get("demon_beast")
	c := beast.Character()
	if c.ID != "demon_beast" || c.Name != "妖兽" {
		t.Errorf("Character() id/name = %s/%s", c.ID, c.Name)
	}
	if c.Health != 150 || c.MaxHealth != 150 || c.Level != 5 {
		t.Errorf("Character() stats = %d/%d lvl %d", c.Health, c.MaxHealth, c.Level)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "npcs.yaml")
	yamlData := `
npcs:
  bandit:
    name: 山贼
    location: 山道
    hostile: true
    loot:
      - item: 灵石
        chance: 1
  smith:
    location: 山道
    shop:
      - item: 铁剑
        price: 25
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	bandit, _ := r.Get("bandit")
	if bandit.Health != 50 {
		t.Errorf("hostile NPC without health got %d, want corrected 50", bandit.Health)
	}
	if bandit.Loot[0].Count != 1 {
		t.Errorf("loot count = %d, want default 1", bandit.Loot[0].Count)
	}
	smith, _ := r.Get("smith")
	if smith.Name != "smith" || !smith.IsMerchant() || smith.Shop[0].Price != 25 {
		t.Errorf("smith = %+v", smith)
	}
}
