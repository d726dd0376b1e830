package httpapi

import (
	"sync"
	"time"
)

// An analytics endpoint sees a long tail of distinct client IPs, so idle
// buckets are swept out instead of accumulating forever.
const bucketIdleTTL = 10 * time.Minute

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	rps       float64
	burst     int
	bkts      map[string]*bucket // key: ip
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{rps: rps, burst: burst, bkts: make(map[string]*bucket), lastSweep: time.Now()}
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > bucketIdleTTL {
		rl.sweep(now)
	}

	bkt, ok := rl.bkts[key]
	if !ok {
		bkt = &bucket{tokens: float64(rl.burst), lastRefill: now}
		rl.bkts[key] = bkt
	}

	elapsed := now.Sub(bkt.lastRefill).Seconds()
	bkt.tokens = min(float64(rl.burst), bkt.tokens+elapsed*rl.rps)
	bkt.lastRefill = now

	if bkt.tokens >= 1 {
		bkt.tokens -= 1
		return true
	}
	return false
}

// sweep drops buckets idle long enough to have refilled to full burst anyway.
func (rl *rateLimiter) sweep(now time.Time) {
	for key, bkt := range rl.bkts {
		if now.Sub(bkt.lastRefill) > bucketIdleTTL {
			delete(rl.bkts, key)
		}
	}
	rl.lastSweep = now
}
