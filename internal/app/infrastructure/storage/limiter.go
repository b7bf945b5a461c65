package storage

import (
	"golang.org/x/time/rate"
	"time"
)

// SendLimiter keeps one token bucket per session. Buckets of sessions that
// stopped sending are dropped after idle.
type SendLimiter struct {
	buckets *Cache[*rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewSendLimiter allows requests sends per period with bursts of requests.
// A zero requests disables limiting.
func NewSendLimiter(requests int, per time.Duration, idle time.Duration) *SendLimiter {
	if requests <= 0 || per <= 0 {
		return &SendLimiter{}
	}

	return &SendLimiter{
		buckets: NewCache[*rate.Limiter](64, idle),
		limit:   rate.Every(per / time.Duration(requests)),
		burst:   requests,
	}
}

func (l *SendLimiter) Allow(sessionID string) bool {
	if l.buckets == nil {
		return true
	}

	bucket := l.buckets.GetOrSet(sessionID, func() *rate.Limiter {
		return rate.NewLimiter(l.limit, l.burst)
	})
	return bucket.Allow()
}

// Forget drops the bucket of a session that left.
func (l *SendLimiter) Forget(sessionID string) {
	if l.buckets == nil {
		return
	}
	l.buckets.ClearKey(sessionID)
}
