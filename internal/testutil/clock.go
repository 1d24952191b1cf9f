package testutil

import (
	"sync"
	"time"
)

// DefaultClockBase is the first instant a DeterministicClock hands out (plus
// one step).
var DefaultClockBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// DeterministicClock provides a thread-safe monotonic wall clock for tests.
//
// Every call to Now advances the clock by a fixed step, so marker timestamps
// written during a test are predictable and strictly increasing. The clock
// can be reset so the same scenario produces identical artifacts twice.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	base  time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at DefaultClockBase with a
// one second step.
//
// The first call to Now() returns DefaultClockBase + 1s.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{base: DefaultClockBase, step: time.Second}
}

// Now advances the clock by one step and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.at(c.ticks)
}

// Current returns the current instant without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at(c.ticks)
}

// Ticks returns how many times Now has been called since creation or Reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its base.
//
// After Reset(), the next call to Now() returns base + step again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

func (c *DeterministicClock) at(ticks int64) time.Time {
	return c.base.Add(time.Duration(ticks) * c.step)
}
