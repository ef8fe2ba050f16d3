package antispam

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(config Config) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tracker := NewTracker(config)
	tracker.SetClock(clock.now)
	return tracker, clock
}

func TestRateLimit(t *testing.T) {
	tracker, _ := newTestTracker(Config{Enabled: true, MaxCommands: 3, TimeWindow: time.Minute})

	// First 3 commands should be allowed
	for i := 0; i < 3; i++ {
		if !tracker.Check("player").Allowed {
			t.Errorf("Command %d should be allowed", i+1)
		}
	}

	// 4th command should be blocked
	result := tracker.Check("player")
	if result.Allowed {
		t.Error("4th command should be blocked by rate limit")
	}
	if result.Wait != time.Minute {
		t.Errorf("Wait = %v, want 1m", result.Wait)
	}
}

func TestRateLimitIsPerKey(t *testing.T) {
	tracker, _ := newTestTracker(Config{Enabled: true, MaxCommands: 1, TimeWindow: time.Minute})

	if !tracker.Check("player").Allowed {
		t.Fatal("first player command should be allowed")
	}
	if !tracker.Check("npc").Allowed {
		t.Error("npc should have its own window")
	}
}

func TestTimeWindowExpiry(t *testing.T) {
	tracker, clock := newTestTracker(Config{Enabled: true, MaxCommands: 2, TimeWindow: 10 * time.Second})

	tracker.Check("player")
	clock.advance(5 * time.Second)
	tracker.Check("player")
	if tracker.Check("player").Allowed {
		t.Fatal("3rd command inside the window should be blocked")
	}

	clock.advance(6 * time.Second)
	if !tracker.Check("player").Allowed {
		t.Error("command should be allowed once the oldest entry left the window")
	}
}

func TestDisabled(t *testing.T) {
	tracker, _ := newTestTracker(Config{Enabled: false, MaxCommands: 1, TimeWindow: time.Hour})

	for i := 0; i < 10; i++ {
		if !tracker.Check("player").Allowed {
			t.Errorf("Command %d should be allowed when disabled", i+1)
		}
	}
}

func TestCooldown(t *testing.T) {
	tracker, clock := newTestTracker(DefaultConfig())

	if !tracker.CheckCooldown("player:cultivate").Allowed {
		t.Fatal("no cooldown started yet")
	}
	tracker.StartCooldown("player:cultivate", 5*time.Second)

	clock.advance(2 * time.Second)
	result := tracker.CheckCooldown("player:cultivate")
	if result.Allowed || result.Wait != 3*time.Second {
		t.Errorf("CheckCooldown = %+v, want blocked with 3s", result)
	}
	if !tracker.CheckCooldown("player:save").Allowed {
		t.Error("other keys should not share the cooldown")
	}

	clock.advance(3 * time.Second)
	if !tracker.CheckCooldown("player:cultivate").Allowed {
		t.Error("cooldown should have expired")
	}
}

func TestStartCooldownIgnoresZero(t *testing.T) {
	tracker, _ := newTestTracker(DefaultConfig())
	tracker.StartCooldown("k", 0)
	if !tracker.CheckCooldown("k").Allowed {
		t.Error("zero cooldown should not block")
	}
}

func TestReset(t *testing.T) {
	tracker, _ := newTestTracker(Config{Enabled: true, MaxCommands: 1, TimeWindow: time.Hour})
	tracker.Check("player")
	tracker.StartCooldown("player:save", time.Hour)

	tracker.Reset()

	if !tracker.Check("player").Allowed {
		t.Error("Check should be allowed after reset")
	}
	if !tracker.CheckCooldown("player:save").Allowed {
		t.Error("cooldown should be cleared after reset")
	}
}

func TestConfigFromYAML(t *testing.T) {
	cfg := ConfigFromYAML(true, 0, 0)
	if cfg.MaxCommands != 10 || cfg.TimeWindow != time.Minute {
		t.Errorf("zero values should keep defaults, got %+v", cfg)
	}
	cfg = ConfigFromYAML(false, 3, 5)
	if cfg.Enabled || cfg.MaxCommands != 3 || cfg.TimeWindow != 5*time.Second {
		t.Errorf("ConfigFromYAML = %+v", cfg)
	}
}

func TestConcurrentChecks(t *testing.T) {
	tracker := NewTracker(Config{Enabled: true, MaxCommands: 50, TimeWindow: time.Hour})

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- tracker.Check("player").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("allowed %d commands, want 50", count)
	}
}
