// Package antispam throttles command submission per source with a sliding
// window rate limit and per-key cooldowns.
package antispam

import (
	"sync"
	"time"
)

// Config holds anti-spam configuration
type Config struct {
	Enabled     bool          // Whether rate limiting is enabled
	MaxCommands int           // Max commands allowed in the time window
	TimeWindow  time.Duration // Sliding window length
}

// DefaultConfig returns the default limits: 10 commands per minute.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxCommands: 10,
		TimeWindow:  60 * time.Second,
	}
}

// ConfigFromYAML creates a Config from YAML-loaded values
func ConfigFromYAML(enabled bool, maxCommands, windowSeconds int) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if maxCommands > 0 {
		cfg.MaxCommands = maxCommands
	}
	if windowSeconds > 0 {
		cfg.TimeWindow = time.Duration(windowSeconds) * time.Second
	}
	return cfg
}

// Tracker tracks command activity keyed by source. It is safe for
// concurrent use so one tracker can be shared by every connection.
type Tracker struct {
	mu        sync.Mutex
	config    Config
	times     map[string][]time.Time // key -> timestamps inside the window
	cooldowns map[string]time.Time   // key -> time the cooldown expires
	now       func() time.Time
}

// NewTracker creates a new tracker with the given config
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config:    config,
		times:     make(map[string][]time.Time),
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetClock replaces the clock used for all checks.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// CheckResult contains the result of a check
type CheckResult struct {
	Allowed bool
	Wait    time.Duration // How long until the key is allowed again (if not allowed)
}

// Check records one command for key if it fits in the window.
func (t *Tracker) Check(key string) CheckResult {
	if !t.config.Enabled {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	times := t.prune(key, now)

	if len(times) >= t.config.MaxCommands {
		return CheckResult{
			Allowed: false,
			Wait:    times[0].Add(t.config.TimeWindow).Sub(now),
		}
	}

	t.times[key] = append(times, now)
	return CheckResult{Allowed: true}
}

// prune drops timestamps older than the window.
func (t *Tracker) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-t.config.TimeWindow)
	times := t.times[key]
	kept := times[:0]
	for _, ts := range times {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(t.times, key)
		return nil
	}
	t.times[key] = kept
	return kept
}

// CheckCooldown reports whether key is outside its cooldown. It does not
// start a new cooldown.
func (t *Tracker) CheckCooldown(key string) CheckResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	until, ok := t.cooldowns[key]
	if !ok {
		return CheckResult{Allowed: true}
	}
	now := t.now()
	if !now.Before(until) {
		delete(t.cooldowns, key)
		return CheckResult{Allowed: true}
	}
	return CheckResult{Allowed: false, Wait: until.Sub(now)}
}

// StartCooldown blocks key for d from now.
func (t *Tracker) StartCooldown(key string, d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooldowns[key] = t.now().Add(d)
}

// Reset clears all tracking data (useful for testing or admin reset)
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = make(map[string][]time.Time)
	t.cooldowns = make(map[string]time.Time)
}
