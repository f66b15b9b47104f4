package ipc

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// connLimiter enforces a per-connection token-bucket rate limit on
// commands, the same shape as the teacher's REST middleware rate limiter
// but keyed by connection instead of client IP (an IPC connection is
// already a single logical client).
type connLimiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newConnLimiter(rps float64, burst int) *connLimiter {
	return &connLimiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// allow reports whether connID may issue another command right now,
// creating its limiter lazily on first use.
func (c *connLimiter) allow(connID string) bool {
	c.mu.Lock()
	limiter, ok := c.limiters[connID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[connID] = limiter
	}
	c.mu.Unlock()
	return limiter.Allow()
}

// release drops connID's limiter once its connection closes, so the map
// doesn't grow unboundedly across a server's lifetime.
func (c *connLimiter) release(connID string) {
	c.mu.Lock()
	delete(c.limiters, connID)
	c.mu.Unlock()
}

// waitFor blocks until connID's limiter would allow another command, used
// by BULKLOAD so a large file doesn't just get rejected outright by the
// burst limit. If the required wait is longer than deadline it returns
// false at once without waiting.
func (c *connLimiter) waitFor(connID string, deadline time.Duration) bool {
	c.mu.Lock()
	limiter, ok := c.limiters[connID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[connID] = limiter
	}
	c.mu.Unlock()

	r := limiter.Reserve()
	if !r.OK() {
		return false
	}
	if r.Delay() > deadline {
		r.Cancel()
		return false
	}
	time.Sleep(r.Delay())
	return true
}
