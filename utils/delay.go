package utils

import (
	"math/rand"
	"time"
)

// Jitter returns a random duration in [min, max). It returns min when the
// range is empty or inverted.
func Jitter(min, max time.Duration) time.Duration {
	diff := max - min
	if diff <= 0 {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(diff)))
}
