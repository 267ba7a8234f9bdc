package testutil

import "sync"

// DeterministicClock hands out strictly increasing epoch-second timestamps
// for tests. Annotation creation times come from a caller-supplied clock, so
// fixing them here makes supersession ordering and query output
// byte-reproducible across runs.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now int64
}

// NewDeterministicClock creates a clock starting at the given epoch second.
func NewDeterministicClock(start int64) *DeterministicClock {
	return &DeterministicClock{now: start}
}

// Next advances the clock by one second and returns the new value.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now++
	return c.now
}

// Current returns the current value without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
