// Package relay throttles inbound frames per connection with a token bucket
// so one noisy client cannot monopolize the router.
package relay

import (
	"sync"
	"time"
)

type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
}

func newTokenBucket(burst int, refill time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if refill <= 0 {
		refill = time.Second
	}
	return &tokenBucket{
		tokens:   float64(burst),
		capacity: float64(burst),
		perSec:   float64(burst) / refill.Seconds(),
		last:     time.Now(),
	}
}

// allow consumes one token, refilling the bucket for the time elapsed since
// the last call. It reports false when the bucket is empty.
func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.perSec)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
