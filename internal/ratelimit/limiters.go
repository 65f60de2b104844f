package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults sized below Google's per-user quotas for Drive, Sheets and Docs.
const (
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 10
	DefaultIdleTimeout       = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiters is a registry of per-key token buckets.
type Limiters struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewLimiters creates a registry. Non-positive values fall back to defaults.
// An infinite rps disables limiting.
func NewLimiters(rps float64, burst int) *Limiters {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Limiters{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
	}
}

// Get returns the limiter for key, creating it on first use.
func (l *Limiters) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastUsed = l.now()
	return e.limiter
}

// Sweep drops limiters unused for longer than the idle timeout and returns
// how many were removed.
func (l *Limiters) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, e := range l.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RunSweeper calls Sweep every interval until stop is closed.
func (l *Limiters) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-stop:
			return
		}
	}
}
