// Package ratelimit provides per-principal token buckets backed by
// golang.org/x/time/rate. The service runs two independent limiters,
// one keyed by API key and one by client IP.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token per admitted request. Buckets are
// created on first sight of a principal and kept for the life of the
// process; capacity defaults to the per-minute rate when burst is
// zero, and tokens refill at rate/60 per second.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func New(perMinute, burst int) *Limiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Allow consumes a token for the principal. Empty principals are
// always admitted; an unidentified caller is limited by the other
// limiter (IP or key).
func (l *Limiter) Allow(principal string) bool {
	if principal == "" {
		return true
	}

	l.mu.Lock()
	bucket, ok := l.buckets[principal]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[principal] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}
