package server

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/config"
)

func newTestLockout(maxAttempts int) (*Lockout, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLockout(config.LockoutConfig{MaxAttempts: maxAttempts, LockoutSeconds: 30, MaxLockoutSeconds: 100})
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLockout_LocksAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLockout(3)

	for i := 0; i < 2; i++ {
		if locked, _ := l.RecordFailure("1.2.3.4"); locked {
			t.Fatalf("attempt %d should not lock", i+1)
		}
	}
	if got := l.Attempts("1.2.3.4"); got != 2 {
		t.Errorf("Attempts() = %d, want 2", got)
	}

	locked, d := l.RecordFailure("1.2.3.4")
	if !locked || d != 30*time.Second {
		t.Errorf("third failure = (%v, %v), want (true, 30s)", locked, d)
	}
	if locked, _ := l.IsLocked("1.2.3.4"); !locked {
		t.Error("IsLocked() = false after lockout")
	}
	if locked, _ := l.IsLocked("5.6.7.8"); locked {
		t.Error("other addresses should not be locked")
	}
}

func TestLockout_Expires(t *testing.T) {
	l, now := newTestLockout(1)

	l.RecordFailure("ip")
	*now = now.Add(31 * time.Second)
	if locked, _ := l.IsLocked("ip"); locked {
		t.Error("lockout should expire")
	}
}

func TestLockout_BackoffDoublesUpToMax(t *testing.T) {
	l, now := newTestLockout(1)

	want := []time.Duration{30 * time.Second, 60 * time.Second, 100 * time.Second, 100 * time.Second}
	for i, w := range want {
		_, d := l.RecordFailure("ip")
		if d != w {
			t.Errorf("lockout %d = %v, want %v", i+1, d, w)
		}
		*now = now.Add(d + time.Second)
	}
}

func TestLockout_RecordSuccessClears(t *testing.T) {
	l, _ := newTestLockout(3)

	l.RecordFailure("ip")
	l.RecordFailure("ip")
	l.RecordSuccess("ip")
	if got := l.Attempts("ip"); got != 0 {
		t.Errorf("Attempts() after success = %d, want 0", got)
	}
}

func TestLockout_Defaults(t *testing.T) {
	l := NewLockout(config.LockoutConfig{})
	if l.maxAttempts != 5 || l.lockout != 30*time.Second || l.maxLockout != 5*time.Minute {
		t.Errorf("defaults = %d, %v, %v", l.maxAttempts, l.lockout, l.maxLockout)
	}
}
