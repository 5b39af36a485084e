package search

import (
	"math"
	"math/rand"
	"time"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 4 * time.Second
)

// backoffWithJitter computes exponential backoff for a retry attempt
// (attempt >= 1) with a short random jitter so concurrent sessions do not
// retry in lockstep.
func backoffWithJitter(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	jitter := time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
	return time.Duration(backoff) + jitter
}
