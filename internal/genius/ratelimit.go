package genius

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum spacing between calls. All callers share
// one timestamp behind one mutex, so concurrent callers wait in turn.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter allows at most callsPerSecond calls per second.
// A non-positive rate disables waiting.
func NewRateLimiter(callsPerSecond float64) *RateLimiter {
	l := &RateLimiter{now: time.Now, sleep: time.Sleep}
	if callsPerSecond > 0 {
		l.interval = time.Duration(float64(time.Second) / callsPerSecond)
	}
	return l
}

// Wait blocks until the minimum spacing since the previous call has elapsed.
// It cannot be interrupted.
func (l *RateLimiter) Wait() {
	if l == nil || l.interval <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if elapsed := l.now().Sub(l.last); elapsed < l.interval {
		l.sleep(l.interval - elapsed)
	}
	l.last = l.now()
}
