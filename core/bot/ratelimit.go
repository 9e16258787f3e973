package bot

import (
	"sync"
	"time"
)

// Event kinds understood by the rate limiter's exclusion list.
const (
	KindMessage    = "message"
	KindSubmission = "submission"
)

// RateLimitOptions configures the per-sender minimum interval between events.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists event kinds that bypass the limiter.
	Exclude map[string]struct{}
}

type limiter struct {
	opts     RateLimitOptions
	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

func newLimiter(opts RateLimitOptions) *limiter {
	return &limiter{opts: opts, lastSeen: make(map[string]time.Time), now: time.Now}
}

// allow records the event and reports whether it may proceed.
func (l *limiter) allow(kind, personID string) bool {
	if l == nil || l.opts.Interval <= 0 || personID == "" {
		return true
	}
	if _, skip := l.opts.Exclude[kind]; skip {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[personID]; ok && now.Sub(last) < l.opts.Interval {
		return false
	}
	l.lastSeen[personID] = now
	if len(l.lastSeen) > 4096 {
		l.prune(now)
	}
	return true
}

func (l *limiter) prune(now time.Time) {
	for id, ts := range l.lastSeen {
		if now.Sub(ts) >= l.opts.Interval {
			delete(l.lastSeen, id)
		}
	}
}
