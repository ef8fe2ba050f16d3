package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/lawnchairsociety/xianmud/internal/config"
)

func TestConnLimiter_Limits(t *testing.T) {
	tests := []struct {
		name     string
		maxPerIP int
		maxTotal int
		ips      []string
		want     []bool
	}{
		{"per ip", 2, 100, []string{"a", "a", "a", "b"}, []bool{true, true, false, true}},
		{"total", 10, 3, []string{"a", "b", "c", "d"}, []bool{true, true, true, false}},
		{"unlimited", 0, 0, []string{"a", "a", "a", "a"}, []bool{true, true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewConnLimiter(config.ServerConfig{MaxPerIP: tt.maxPerIP, MaxTotal: tt.maxTotal})
			for i, ip := range tt.ips {
				if got := limiter.TryAcquire(ip); got != tt.want[i] {
					t.Errorf("TryAcquire(%q) #%d = %v, want %v", ip, i+1, got, tt.want[i])
				}
			}
		})
	}
}

func TestConnLimiter_Release(t *testing.T) {
	limiter := NewConnLimiter(config.ServerConfig{MaxPerIP: 1, MaxTotal: 100})

	limiter.TryAcquire("192.168.1.1")
	if limiter.TryAcquire("192.168.1.1") {
		t.Fatal("second connection from same IP should be rejected")
	}
	limiter.Release("192.168.1.1")
	if !limiter.TryAcquire("192.168.1.1") {
		t.Error("connection should be allowed after release")
	}

	// Releasing an unknown IP must not underflow.
	limiter.Release("10.0.0.9")
	if total, _ := limiter.Stats(); total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestConnLimiter_AcquireReason(t *testing.T) {
	tests := []struct {
		name     string
		maxPerIP int
		maxTotal int
		held     []string
		ip       string
		want     error
	}{
		{"allowed", 2, 10, []string{"a"}, "a", nil},
		{"per ip", 1, 10, []string{"a"}, "a", ErrTooManyFromIP},
		{"total", 5, 2, []string{"a", "b"}, "c", ErrServerFull},
		{"total checked first", 1, 1, []string{"a"}, "a", ErrServerFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewConnLimiter(config.ServerConfig{MaxPerIP: tt.maxPerIP, MaxTotal: tt.maxTotal})
			for _, ip := range tt.held {
				limiter.TryAcquire(ip)
			}
			release, err := limiter.Acquire(tt.ip)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Acquire(%q) error = %v, want %v", tt.ip, err, tt.want)
			}
			if (release == nil) != (tt.want != nil) {
				t.Errorf("release func present = %v, want %v", release != nil, tt.want == nil)
			}
		})
	}
}

func TestConnLimiter_ReleaseFuncIsIdempotent(t *testing.T) {
	limiter := NewConnLimiter(config.ServerConfig{MaxTotal: 2})

	release, err := limiter.Acquire("a")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	limiter.TryAcquire("b")
	release()
	release()

	if total, addresses := limiter.Stats(); total != 1 || addresses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", total, addresses)
	}
	if !limiter.TryAcquire("c") {
		t.Error("slot freed by release should be reusable")
	}
	if limiter.TryAcquire("d") {
		t.Error("total limit exceeded after double release")
	}
}

func TestLimitMessage(t *testing.T) {
	if got := limitMessage(ErrServerFull); got != "服务器已满，请稍后再试。" {
		t.Errorf("limitMessage(ErrServerFull) = %q", got)
	}
	if got := limitMessage(ErrTooManyFromIP); got != "连接数过多，请稍后再试。" {
		t.Errorf("limitMessage(ErrTooManyFromIP) = %q", got)
	}
}

func TestConnLimiter_Stats(t *testing.T) {
	limiter := NewConnLimiter(config.ServerConfig{MaxPerIP: 10, MaxTotal: 100})

	limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.1")
	limiter.TryAcquire("192.168.1.2")

	total, uniqueIPs := limiter.Stats()
	if total != 3 || uniqueIPs != 2 {
		t.Errorf("Stats() = (%d, %d), want (3, 2)", total, uniqueIPs)
	}
	if count := limiter.IPCount("192.168.1.1"); count != 2 {
		t.Errorf("IPCount(192.168.1.1) = %d, want 2", count)
	}
	if count := limiter.IPCount("192.168.1.3"); count != 0 {
		t.Errorf("IPCount(unknown) = %d, want 0", count)
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"localhost:4000", "localhost"},
		{"192.168.1.1", "192.168.1.1"}, // No port
	}

	for _, tt := range tests {
		if result := extractIP(tt.input); result != tt.expected {
			t.Errorf("extractIP(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		expected   string
	}{
		{"X-Forwarded-For single IP", "203.0.113.50", "", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Forwarded-For multiple IPs", "203.0.113.50, 70.41.3.18", "", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Real-IP", "", "203.0.113.50", "10.0.0.1:12345", "203.0.113.50"},
		{"X-Forwarded-For takes precedence", "203.0.113.50", "198.51.100.25", "10.0.0.1:12345", "203.0.113.50"},
		{"No headers", "", "", "192.168.1.100:54321", "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if result := getRealIP(req); result != tt.expected {
				t.Errorf("getRealIP() = %q, want %q", result, tt.expected)
			}
		})
	}
}
