package kvutil

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"
)

const (
	conflictBaseDelay  = 5 * time.Millisecond
	conflictMultiplier = 3.0
	conflictMaxDelay   = 250 * time.Millisecond
)

// decorrelatedJitter returns the next wait after losing a compare-and-swap race.
//
// The next delay is drawn uniformly from [base, prev*mult) and capped at maxDelay, so
// writers that collided once spread apart on the retry. A zero prev starts at base.
// rng may be nil to use the package-level source.
func decorrelatedJitter(prev, base time.Duration, mult float64, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	if maxDelay > 0 && maxDelay < base {
		return maxDelay
	}
	if prev <= 0 {
		return base
	}
	if mult < 1 {
		mult = 1
	}

	spread := time.Duration(float64(prev)*mult) - base
	if spread <= 0 {
		spread = base
	}

	var n int64
	if rng != nil {
		n = rng.Int64N(int64(spread))
	} else {
		n = rand.Int64N(int64(spread)) //nolint:gosec // retry jitter
	}

	next := base + time.Duration(n)
	if maxDelay > 0 && next > maxDelay {
		return maxDelay
	}

	return next
}

// conflictWait sleeps before retrying a lost compare-and-swap and returns the delay it
// used, to be passed back as prev on the next conflict.
func conflictWait(ctx context.Context, prev time.Duration) (time.Duration, error) {
	delay := decorrelatedJitter(prev, conflictBaseDelay, conflictMultiplier, conflictMaxDelay, nil)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return delay, fmt.Errorf("context cancelled during KV update: %w", ctx.Err())
	case <-timer.C:
		return delay, nil
	}
}
