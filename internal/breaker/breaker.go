// Package breaker fail-fasts traffic to storefronts that keep
// failing, giving the upstream a cool-off before new renders are
// attempted.
package breaker

import (
	"sync"
	"time"
)

// Breaker keeps one independent failure state per country code. Only
// scrape-worker outcomes feed it; validation and rate-limit
// rejections never do.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolOff   time.Duration
	failures  map[string]int
	openUntil map[string]time.Time
}

func New(threshold int, coolOff time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		coolOff:   coolOff,
		failures:  make(map[string]int),
		openUntil: make(map[string]time.Time),
	}
}

// IsOpen reports whether the breaker refuses traffic for a country.
// Once the cool-off has elapsed the state resets and traffic flows
// again.
func (b *Breaker) IsOpen(country string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	until, ok := b.openUntil[country]
	if !ok {
		return false
	}
	if time.Now().Before(until) {
		return true
	}
	delete(b.openUntil, country)
	delete(b.failures, country)
	return false
}

func (b *Breaker) RecordSuccess(country string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.failures, country)
	delete(b.openUntil, country)
}

func (b *Breaker) RecordFailure(country string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[country]++
	if b.failures[country] >= b.threshold {
		b.openUntil[country] = time.Now().Add(b.coolOff)
	}
}
