// Package namefilter validates the 道号 a player picks when connecting.
package namefilter

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config holds the name filter configuration
type Config struct {
	Enabled     bool     `yaml:"enabled"`
	MinLength   int      `yaml:"min_length"` // in runes
	MaxLength   int      `yaml:"max_length"`
	BannedWords []string `yaml:"banned_words"`
	BannedNames []string `yaml:"banned_names"`
}

// DefaultConfig allows names of two to eight characters.
func DefaultConfig() *Config {
	return &Config{Enabled: true, MinLength: 2, MaxLength: 8}
}

// Result contains the outcome of checking a name
type Result struct {
	Allowed bool   // Whether the name is allowed
	Reason  string // Reason for rejection (if not allowed)
}

// NameFilter checks names against length, character and word rules, and
// against reserved names such as the game's NPCs.
type NameFilter struct {
	enabled     bool
	minLength   int
	maxLength   int
	bannedWords []string        // lowercase, partial match
	bannedNames map[string]bool // lowercase, exact match
	reserved    map[string]bool
}

// New creates a new NameFilter from a Config
func New(cfg *Config) *NameFilter {
	nf := &NameFilter{
		bannedNames: map[string]bool{},
		reserved:    map[string]bool{},
	}
	if cfg == nil {
		return nf
	}

	nf.enabled = cfg.Enabled
	nf.minLength = cfg.MinLength
	nf.maxLength = cfg.MaxLength
	for _, word := range cfg.BannedWords {
		if word != "" {
			nf.bannedWords = append(nf.bannedWords, strings.ToLower(word))
		}
	}
	for _, name := range cfg.BannedNames {
		if name != "" {
			nf.bannedNames[strings.ToLower(name)] = true
		}
	}
	return nf
}

// LoadConfig loads name filter configuration from a YAML file. Unset
// lengths keep the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Reserve blocks names that are already taken, e.g. by NPCs.
func (nf *NameFilter) Reserve(names ...string) {
	for _, n := range names {
		nf.reserved[strings.ToLower(n)] = true
	}
}

// Check validates a name against the filter rules. An empty name is never
// allowed; everything else passes when the filter is disabled.
func (nf *NameFilter) Check(name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Reason: "道号不能为空"}
	}
	if !nf.enabled {
		return Result{Allowed: true}
	}

	n := utf8.RuneCountInString(name)
	if (nf.minLength > 0 && n < nf.minLength) || (nf.maxLength > 0 && n > nf.maxLength) {
		return Result{Reason: fmt.Sprintf("道号长度需在%d到%d个字之间", nf.minLength, nf.maxLength)}
	}
	for _, r := range name {
		if !unicode.Is(unicode.Han, r) && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return Result{Reason: "道号只能由汉字或字母数字组成"}
		}
	}

	lower := strings.ToLower(name)
	if nf.reserved[lower] {
		return Result{Reason: "该道号已被占用"}
	}
	if nf.bannedNames[lower] {
		return Result{Reason: "该道号不可使用"}
	}
	for _, word := range nf.bannedWords {
		if strings.Contains(lower, word) {
			return Result{Reason: "道号包含不允许的字词"}
		}
	}
	return Result{Allowed: true}
}

// IsEnabled returns whether the filter is enabled
func (nf *NameFilter) IsEnabled() bool {
	return nf.enabled
}
