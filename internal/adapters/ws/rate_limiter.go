package ws

import (
	"time"
)

// rateLimiter is a sliding-window cap on inbound frames for a single
// connection. Over-limit frames get an error reply, the socket stays open.
// Used from the connection's readPump only, so no lock.
type rateLimiter struct {
	history  []time.Time
	limit    int
	interval time.Duration
}

func newRateLimiter(limit int, interval time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, interval: interval}
}

func (rl *rateLimiter) Allow() bool {
	if rl.limit <= 0 {
		return true
	}
	now := time.Now()
	windowStart := now.Add(-rl.interval)

	fresh := rl.history[:0]
	for _, t := range rl.history {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	rl.history = fresh

	if len(rl.history) >= rl.limit {
		return false
	}
	rl.history = append(rl.history, now)
	return true
}
