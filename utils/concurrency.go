package utils

import (
	"sync"
	"time"
)

// RateLimiter spaces consecutive calls to Wait by a randomized interval
// drawn from [MinInterval, MaxInterval). The first call never blocks.
type RateLimiter struct {
	minInterval time.Duration
	maxInterval time.Duration
	sleep       func(time.Duration)

	mu          sync.Mutex
	lastRequest time.Time
}

// NewRateLimiter creates a RateLimiter with the given interval range.
func NewRateLimiter(minInterval, maxInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		maxInterval: maxInterval,
		sleep:       time.Sleep,
	}
}

// Wait blocks until the randomized interval since the previous call elapsed.
func (rl *RateLimiter) Wait() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.lastRequest.IsZero() {
		interval := Jitter(rl.minInterval, rl.maxInterval)
		if elapsed := time.Since(rl.lastRequest); elapsed < interval {
			rl.sleep(interval - elapsed)
		}
	}
	rl.lastRequest = time.Now()
}

// KeySet is a thread-safe set of string keys.
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}
