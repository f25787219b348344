package crawler

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// emaAlpha weights a new RTT observation against the running average.
	emaAlpha = 0.2

	// recoveryFactor raises the rate after a response faster than target.
	recoveryFactor = 1.1

	// backoffFactor caps how far a single slow response can cut the rate.
	backoffFactor = 0.5

	// floorDivisor sets the slowest rate relative to the configured one.
	floorDivisor = 10
)

// AdaptiveLimiter paces link probes. It starts at the configured rate, slows
// down while the smoothed response time exceeds targetRTT and climbs back
// toward the configured rate, never above it, once responses are fast again.
type AdaptiveLimiter struct {
	limiter   *rate.Limiter
	targetRTT time.Duration

	mu      sync.Mutex
	emaRTT  time.Duration
	current float64
	ceiling float64
	floor   float64
}

// NewAdaptiveLimiter creates a limiter allowing rps requests per second.
func NewAdaptiveLimiter(rps float64, targetRTT time.Duration) *AdaptiveLimiter {
	if rps <= 0 {
		rps = DefaultRateLimit
	}
	return &AdaptiveLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst(rps)),
		targetRTT: targetRTT,
		emaRTT:    targetRTT,
		current:   rps,
		ceiling:   rps,
		floor:     rps / floorDivisor,
	}
}

// Wait blocks until the next request may start or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// ObserveRTT feeds one response time into the moving average and adjusts
// the rate.
func (a *AdaptiveLimiter) ObserveRTT(rtt time.Duration) {
	if a.targetRTT <= 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.emaRTT = time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(a.emaRTT))
	ratio := float64(a.targetRTT) / float64(max(a.emaRTT, time.Microsecond))

	next := a.current * recoveryFactor
	if ratio < 1 {
		next = max(a.current*ratio, a.current*backoffFactor)
	}
	next = min(max(next, a.floor), a.ceiling)

	if math.Abs(next-a.current) > 0.01 {
		a.current = next
		a.limiter.SetLimit(rate.Limit(next))
		a.limiter.SetBurst(burst(next))
	}
}

// CurrentRate returns the rate in requests per second.
func (a *AdaptiveLimiter) CurrentRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func burst(rps float64) int {
	return max(1, int(math.Ceil(rps)))
}
