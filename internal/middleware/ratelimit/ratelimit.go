// Package ratelimit provides a per-user fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

type userCounter struct {
	count     int
	lastReset time.Time
}

type RateLimiter struct {
	limit    int
	window   time.Duration
	counters map[string]*userCounter
	mu       sync.Mutex
}

// NewRateLimiter allows up to limit requests per user per minute. A
// background goroutine evicts idle counters.
func NewRateLimiter(limit int) *RateLimiter {
	rl := &RateLimiter{
		limit:    limit,
		window:   time.Minute,
		counters: make(map[string]*userCounter),
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.cleanup()
		}
	}()

	return rl
}

func (rl *RateLimiter) IsAllowed(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	counter, exists := rl.counters[userID]

	if !exists {
		rl.counters[userID] = &userCounter{count: 1, lastReset: now}
		return true
	}

	if now.Sub(counter.lastReset) >= rl.window {
		counter.count = 1
		counter.lastReset = now
		return true
	}

	if counter.count >= rl.limit {
		return false
	}

	counter.count++
	return true
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for userID, counter := range rl.counters {
		if now.Sub(counter.lastReset) >= rl.window {
			delete(rl.counters, userID)
		}
	}
}
