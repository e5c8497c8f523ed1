package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// PacingClock spaces consecutive fetches by a random interval drawn from
// [min, max). It owns the single "last fetch" instant shared by every
// fetcher built on it; Wait holds the lock across its sleep so callers are
// serialized and the instant never moves backwards.
type PacingClock struct {
	mu   sync.Mutex
	last time.Time
	min  time.Duration
	max  time.Duration

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration
}

// PacingOption customizes a PacingClock, mainly for tests.
type PacingOption func(*PacingClock)

// WithClock replaces the time source and the sleeper.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PacingOption {
	return func(c *PacingClock) {
		c.now = now
		c.sleep = sleep
	}
}

// WithJitter replaces the spacing draw.
func WithJitter(jitter func(min, max time.Duration) time.Duration) PacingOption {
	return func(c *PacingClock) { c.jitter = jitter }
}

// NewPacingClock creates a clock whose first Wait already counts from now.
func NewPacingClock(min, max time.Duration, opts ...PacingOption) *PacingClock {
	c := &PacingClock{
		min:    min,
		max:    max,
		now:    time.Now,
		sleep:  sleepContext,
		jitter: uniformJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.last = c.now()
	return c
}

// Wait blocks until the drawn spacing since the previous fetch has passed,
// then records the current instant. It returns the time slept.
func (c *PacingClock) Wait(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.jitter(c.min, c.max)
	remaining := target - c.now().Sub(c.last)
	if remaining > 0 {
		if err := c.sleep(ctx, remaining); err != nil {
			return 0, err
		}
	} else {
		remaining = 0
	}

	if now := c.now(); now.After(c.last) {
		c.last = now
	}
	return remaining, nil
}

// Last returns the recorded instant of the most recent fetch.
func (c *PacingClock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func uniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
