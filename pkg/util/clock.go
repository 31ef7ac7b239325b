package util

import (
	"sync"
	"time"
)

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now().UTC() }

// SimClock is a deterministic clock for simulations and tests.
// Every call to Now advances the clock by Step, so consecutive readings are
// strictly increasing and reproducible across runs with the same start.
type SimClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewSimClock(start time.Time, step time.Duration) *SimClock {
	return &SimClock{now: start.UTC(), Step: step}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Peek returns the next reading without advancing.
func (c *SimClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// After advances simulated time by d and fires immediately.
func (c *SimClock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- c.Peek()
	return ch
}
