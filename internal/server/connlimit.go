package server

import (
	"errors"
	"net"
	"sync"

	"github.com/lawnchairsociety/xianmud/internal/config"
)

var (
	// ErrServerFull means the total connection limit is reached.
	ErrServerFull = errors.New("server full")
	// ErrTooManyFromIP means the address already holds its share of slots.
	ErrTooManyFromIP = errors.New("too many connections from address")
)

// ConnLimiter counts open connections per address and in total. Zero
// limits are unlimited.
type ConnLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

// NewConnLimiter creates a limiter from the server limits.
func NewConnLimiter(cfg config.ServerConfig) *ConnLimiter {
	return &ConnLimiter{
		perIP:    make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// Acquire takes a slot for ip. The returned release gives it back and is
// safe to call more than once. A refused slot reports which limit hit.
func (c *ConnLimiter) Acquire(ip string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.maxTotal > 0 && c.total >= c.maxTotal:
		return nil, ErrServerFull
	case c.maxPerIP > 0 && c.perIP[ip] >= c.maxPerIP:
		return nil, ErrTooManyFromIP
	}
	c.perIP[ip]++
	c.total++

	var once sync.Once
	return func() { once.Do(func() { c.Release(ip) }) }, nil
}

// TryAcquire reports whether a slot for ip was taken.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	_, err := c.Acquire(ip)
	return err == nil
}

// Release gives back one slot held by ip. Addresses holding nothing are
// ignored, so the total never drops below the open connections.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.perIP[ip]
	if n == 0 {
		return
	}
	if n == 1 {
		delete(c.perIP, ip)
	} else {
		c.perIP[ip] = n - 1
	}
	c.total--
}

// Stats returns the open connection count and the number of addresses.
func (c *ConnLimiter) Stats() (total int, addresses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, len(c.perIP)
}

// IPCount returns the open connections from ip.
func (c *ConnLimiter) IPCount(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perIP[ip]
}

// limitMessage is what a refused player reads.
func limitMessage(err error) string {
	if errors.Is(err, ErrServerFull) {
		return "服务器已满，请稍后再试。"
	}
	return "连接数过多，请稍后再试。"
}

// extractIP returns the host of an ip:port address, or the input as-is.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
