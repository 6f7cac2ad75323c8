package peer

import (
	"golang.org/x/time/rate"

	"gitlab.com/NebulousLabs/demotemutex"
)

// defaultRate and defaultBurst bound one nodeID's incoming message rate
//. This is an Open
// Question decision (DESIGN.md): no numeric limiter constant survived the
// distillation, so a conservative steady-state rate is chosen.
const (
	defaultRate  = 20 // messages per second
	defaultBurst = 40
)

// RateLimiter enforces a per-nodeID token bucket over incoming overlay
// messages.
type RateLimiter struct {
	mu      demotemutex.DemoteMutex
	buckets map[string]*rate.Limiter
	r       rate.Limit
	burst   int
}

// NewRateLimiter returns a limiter using the default per-nodeID rate and
// burst.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       rate.Limit(defaultRate),
		burst:   defaultBurst,
	}
}

// Allow reports whether a message from nodeID may proceed right now,
// consuming a token if so.
func (rl *RateLimiter) Allow(nodeID string) bool {
	return rl.bucketFor(nodeID).Allow()
}

func (rl *RateLimiter) bucketFor(nodeID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[nodeID]
	if !ok {
		b = rate.NewLimiter(rl.r, rl.burst)
		rl.buckets[nodeID] = b
	}
	return b
}

