package middleware

import "time"

// SetClock swaps the limiter clock so idle eviction can be tested.
func (l *UserRateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}
