package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/xianmud/internal/config"
)

// Lockout counts failed admin logins per address and locks the address
// out once MaxAttempts is reached. Repeat lockouts double in length.
type Lockout struct {
	mu          sync.Mutex
	attempts    map[string]*attemptInfo
	maxAttempts int
	lockout     time.Duration
	maxLockout  time.Duration
	now         func() time.Time
}

type attemptInfo struct {
	failedAttempts int
	lockedUntil    time.Time
	lockoutCount   int
}

// NewLockout creates a lockout tracker. Zero settings take the defaults of
// five attempts, 30 seconds and five minutes.
func NewLockout(cfg config.LockoutConfig) *Lockout {
	l := &Lockout{
		attempts:    make(map[string]*attemptInfo),
		maxAttempts: cfg.MaxAttempts,
		lockout:     time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:  time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		now:         time.Now,
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = 5
	}
	if l.lockout <= 0 {
		l.lockout = 30 * time.Second
	}
	if l.maxLockout <= 0 {
		l.maxLockout = 5 * time.Minute
	}
	return l
}

// IsLocked reports whether ip is locked out and for how much longer.
func (l *Lockout) IsLocked(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.attempts[ip]
	if !ok {
		return false, 0
	}
	if now := l.now(); now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts one failed attempt. It reports whether ip is now
// locked out and for how long.
func (l *Lockout) RecordFailure(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	info, ok := l.attempts[ip]
	if !ok {
		info = &attemptInfo{}
		l.attempts[ip] = info
	}

	now := l.now()
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}

	info.failedAttempts++
	if info.failedAttempts < l.maxAttempts {
		return false, 0
	}

	info.lockoutCount++
	d := l.lockout
	for i := 1; i < info.lockoutCount && d < l.maxLockout; i++ {
		d *= 2
	}
	d = min(d, l.maxLockout)
	info.lockedUntil = now.Add(d)
	info.failedAttempts = 0
	return true, d
}

// RecordSuccess clears the history for ip.
func (l *Lockout) RecordSuccess(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// Attempts returns the failed attempts counted toward the next lockout.
func (l *Lockout) Attempts(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if info, ok := l.attempts[ip]; ok {
		return info.failedAttempts
	}
	return 0
}

// prune drops entries unlocked for over ten minutes with no pending
// failures. Callers hold mu.
func (l *Lockout) prune() {
	cutoff := l.now().Add(-10 * time.Minute)
	for ip, info := range l.attempts {
		if info.failedAttempts == 0 && info.lockedUntil.Before(cutoff) {
			delete(l.attempts, ip)
		}
	}
}
