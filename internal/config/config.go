package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GameConfig holds every tunable of a game session and the server hosting it.
type GameConfig struct {
	Session  SessionConfig  `yaml:"session"`
	Commands CommandsConfig `yaml:"commands"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// SessionConfig holds state manager settings.
type SessionConfig struct {
	// StartingLocation is where a new player appears.
	StartingLocation string `yaml:"starting_location"`

	// AutoSaveSeconds is the wall-clock interval between auto-saves. 0 disables.
	AutoSaveSeconds int `yaml:"auto_save_seconds"`

	// AutoSaveSlot is the slot name auto-saves are written to.
	AutoSaveSlot string `yaml:"auto_save_slot"`

	// SaveDir is the directory file saves live in (driver "file").
	SaveDir string `yaml:"save_dir"`

	// MaxSnapshots bounds the in-memory snapshot ring.
	MaxSnapshots int `yaml:"max_snapshots"`

	// RelationshipMin and RelationshipMax clamp NPC relationship scores.
	RelationshipMin int `yaml:"relationship_min"`
	RelationshipMax int `yaml:"relationship_max"`
}

// CommandsConfig holds command processor settings.
type CommandsConfig struct {
	HistorySize int `yaml:"history_size"`
	UndoSize    int `yaml:"undo_size"`

	// Aliases maps an input prefix to its replacement.
	Aliases map[string]string `yaml:"aliases"`

	// Permissions overrides the allowed command types for a source.
	// The value "*" grants every command type.
	Permissions map[string][]string `yaml:"permissions"`

	// Cooldowns maps a command type to its cooldown in seconds.
	Cooldowns map[string]float64 `yaml:"cooldowns"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds how many commands one source may issue per window.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxCommands   int  `yaml:"max_commands"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	TelnetAddress    string          `yaml:"telnet_address"`
	WebSocketAddress string          `yaml:"websocket_address"`
	WebSocket        WebSocketConfig `yaml:"websocket"`

	// MaxPerIP is the maximum concurrent connections from one address. 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum concurrent connections. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`

	// AdminPasswordHash is a bcrypt hash. Empty disables admin elevation.
	AdminPasswordHash string `yaml:"admin_password_hash"`

	// AdminLockout throttles wrong admin passwords per address.
	AdminLockout LockoutConfig `yaml:"admin_lockout"`

	// NameFilterPath is an optional YAML file of banned player names.
	NameFilterPath string `yaml:"name_filter_path"`
}

// LockoutConfig locks an address out after repeated failures. Each
// lockout doubles, up to MaxLockoutSeconds.
type LockoutConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	LockoutSeconds    int `yaml:"lockout_seconds"`
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy. "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// StorageConfig selects where save slots are kept.
type StorageConfig struct {
	// Driver is one of "file", "sqlite", "postgres" or "bolt".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	BoltPath   string         `yaml:"bolt_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// DefaultConfig returns a GameConfig with the stock game tuning.
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Session: SessionConfig{
			StartingLocation: "青云城",
			AutoSaveSeconds:  300,
			AutoSaveSlot:     "autosave",
			SaveDir:          "saves",
			MaxSnapshots:     10,
			RelationshipMin:  -100,
			RelationshipMax:  100,
		},
		Commands: CommandsConfig{
			HistorySize: 100,
			UndoSize:    20,
			Aliases:     map[string]string{},
			Cooldowns: map[string]float64{
				"cultivate": 5,
				"use_skill": 2,
				"save":      10,
			},
			RateLimit: RateLimitConfig{
				Enabled:       true,
				MaxCommands:   10,
				WindowSeconds: 60,
			},
		},
		Server: ServerConfig{
			TelnetAddress:    ":4000",
			WebSocketAddress: ":4443",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{},
				MaxMessageSize: 4096,
			},
			MaxPerIP: 3,
			MaxTotal: 100,
			AdminLockout: LockoutConfig{
				MaxAttempts:       5,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
		},
		Storage: StorageConfig{
			Driver:     "file",
			SQLitePath: "data/xianmud.db",
			BoltPath:   "data/xianmud.bolt",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Tracing: TracingConfig{
			ServiceName: "xianmud",
		},
	}
}

// LoadConfig loads game configuration from a YAML file.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*GameConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

// Validate reports settings that cannot work together.
func (c *GameConfig) Validate() error {
	if c.Session.RelationshipMin > c.Session.RelationshipMax {
		return fmt.Errorf("relationship_min %d exceeds relationship_max %d",
			c.Session.RelationshipMin, c.Session.RelationshipMax)
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "postgres", "bolt":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Commands.HistorySize < 0 || c.Commands.UndoSize < 0 || c.Session.MaxSnapshots < 0 {
		return fmt.Errorf("history, undo and snapshot sizes must not be negative")
	}
	return nil
}

// AutoSaveInterval returns the auto-save period as a duration.
func (s SessionConfig) AutoSaveInterval() time.Duration {
	return time.Duration(s.AutoSaveSeconds) * time.Second
}

// Window returns the rate limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// CooldownFor returns the configured cooldown for a command type name.
func (c CommandsConfig) CooldownFor(commandType string) time.Duration {
	seconds, ok := c.Cooldowns[strings.ToLower(commandType)]
	if !ok || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// DSN builds a lib/pq connection string. An empty SSLMode means disable.
func (p PostgresConfig) DSN() string {
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, sslmode)
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser clients send no Origin
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
