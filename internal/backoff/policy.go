// Package backoff provides the retry schedule used for upstream provider
// calls: exponential delays with a small uniform jitter.
package backoff

import (
	"math/rand"
	"time"
)

// Policy defines the parameters of the retry schedule.
type Policy struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Factor multiplies the delay for each subsequent attempt.
	Factor int
	// JitterSeconds is the inclusive upper bound of the uniform integer
	// jitter (in seconds) added to each delay.
	JitterSeconds int
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
}

// DefaultPolicy returns the provider retry schedule: three attempts total,
// delays of 2^(n-1) seconds plus an integer jitter in [0, 2].
func DefaultPolicy() Policy {
	return Policy{
		Initial:       time.Second,
		Factor:        2,
		JitterSeconds: 2,
		MaxAttempts:   3,
	}
}

// Delay computes the wait after attempt n (1-indexed) using package-level
// randomness for jitter.
func Delay(p Policy, attempt int) time.Duration {
	jitter := 0
	if p.JitterSeconds > 0 {
		jitter = rand.Intn(p.JitterSeconds + 1) // #nosec G404 -- jitter does not require cryptographic randomness
	}
	return DelayWithJitter(p, attempt, jitter)
}

// DelayWithJitter computes the wait after attempt n with an explicit jitter
// value in seconds. Useful for deterministic tests.
func DelayWithJitter(p Policy, attempt int, jitterSeconds int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.Initial
	for i := 1; i < attempt; i++ {
		base *= time.Duration(p.Factor)
	}
	return base + time.Duration(jitterSeconds)*time.Second
}
