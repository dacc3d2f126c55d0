package exchange

import "time"

// rateLimiter is a token bucket replenishing at a fixed rate. It never
// blocks: the exchange rejects rather than queues over-limit requests.
// Callers synchronize access; the exchange lock covers it.
type rateLimiter struct {
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// newRateLimiter allows perSecond requests sustained with the given
// burst. A zero perSecond disables limiting.
func newRateLimiter(perSecond, burst float64) *rateLimiter {
	return &rateLimiter{
		rate:   perSecond,
		burst:  burst,
		tokens: burst,
		last:   time.Now(),
	}
}

// allow consumes one token if available at the given time.
func (rl *rateLimiter) allow(now time.Time) bool {
	if rl.rate <= 0 {
		return true
	}
	elapsed := now.Sub(rl.last).Seconds()
	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.last = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
