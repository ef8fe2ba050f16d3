package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Session.AutoSaveSeconds != 300 {
		t.Errorf("AutoSaveSeconds = %d, want 300", cfg.Session.AutoSaveSeconds)
	}
	if cfg.Session.MaxSnapshots != 10 {
		t.Errorf("MaxSnapshots = %d, want 10", cfg.Session.MaxSnapshots)
	}
	if cfg.Commands.HistorySize != 100 || cfg.Commands.UndoSize != 20 {
		t.Errorf("history/undo = %d/%d, want 100/20", cfg.Commands.HistorySize, cfg.Commands.UndoSize)
	}
	if cfg.Session.RelationshipMin != -100 || cfg.Session.RelationshipMax != 100 {
		t.Errorf("relationship range = [%d,%d], want [-100,100]",
			cfg.Session.RelationshipMin, cfg.Session.RelationshipMax)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("Storage.Driver = %q, want file", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/game.yaml")
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Session.StartingLocation != "青云城" {
		t.Errorf("StartingLocation = %q, want 青云城", cfg.Session.StartingLocation)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "game.yaml")
	content := `
session:
  starting_location: 灵气洞府
  auto_save_seconds: 60
commands:
  aliases:
    gj: 攻击
  permissions:
    npc: [talk, trade, flee]
  cooldowns:
    cultivate: 1.5
storage:
  driver: sqlite
  sqlite_path: /tmp/x.db
server:
  websocket:
    allowed_origins:
      - "https://example.com"
    max_message_size: 8192
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.StartingLocation != "灵气洞府" {
		t.Errorf("StartingLocation = %q", cfg.Session.StartingLocation)
	}
	if cfg.Session.AutoSaveInterval() != time.Minute {
		t.Errorf("AutoSaveInterval = %v, want 1m", cfg.Session.AutoSaveInterval())
	}
	if cfg.Session.MaxSnapshots != 10 {
		t.Errorf("unset MaxSnapshots should keep default, got %d", cfg.Session.MaxSnapshots)
	}
	if cfg.Commands.Aliases["gj"] != "攻击" {
		t.Errorf("alias gj = %q", cfg.Commands.Aliases["gj"])
	}
	if got := cfg.Commands.Permissions["npc"]; len(got) != 3 {
		t.Errorf("npc permissions = %v", got)
	}
	if got := cfg.Commands.CooldownFor("CULTIVATE"); got != 1500*time.Millisecond {
		t.Errorf("CooldownFor(cultivate) = %v, want 1.5s", got)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/x.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("MaxMessageSize = %d, want 8192", cfg.Server.WebSocket.MaxMessageSize)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "session: [unclosed", "parse"},
		{"bad driver", "storage:\n  driver: mongo\n", "unknown storage driver"},
		{"inverted range", "session:\n  relationship_min: 10\n  relationship_max: -10\n", "relationship_min"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "game.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("LoadConfig error = %v, want containing %q", err, tc.wantErr)
			}
			if cfg == nil || cfg.Storage.Driver != "file" {
				t.Error("invalid config should fall back to defaults")
			}
		})
	}
}

func TestCooldownForUnknown(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Commands.CooldownFor("attack"); got != 0 {
		t.Errorf("CooldownFor(attack) = %v, want 0", got)
	}
	if got := cfg.Commands.CooldownFor("save"); got != 10*time.Second {
		t.Errorf("CooldownFor(save) = %v, want 10s", got)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "xian", Password: "pw", Database: "game", SSLMode: "require"}
	want := "host=db port=5433 user=xian password=pw dbname=game sslmode=require"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	p.SSLMode = ""
	want = "host=db port=5433 user=xian password=pw dbname=game sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() with empty ssl mode = %q, want %q", got, want)
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"same origin empty header", nil, "", "localhost:4443", true},
		{"same origin match", nil, "http://localhost:4443", "localhost:4443", true},
		{"same origin trailing slash", nil, "http://localhost:4443/", "localhost:4443", true},
		{"same origin mismatch", nil, "http://evil.com", "localhost:4443", false},
		{"wildcard", []string{"*"}, "http://anything.com", "localhost:4443", true},
		{"exact match", []string{"https://example.com"}, "https://example.com", "localhost:4443", true},
		{"not listed", []string{"https://example.com"}, "https://other.com", "localhost:4443", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := WebSocketConfig{AllowedOrigins: tc.allowed}
			if got := cfg.IsOriginAllowed(tc.origin, tc.host); got != tc.want {
				t.Errorf("IsOriginAllowed(%q, %q) = %v, want %v", tc.origin, tc.host, got, tc.want)
			}
		})
	}
}
