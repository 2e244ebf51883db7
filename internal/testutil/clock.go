package testutil

import (
	"sync"

	"github.com/roach88/registrar/internal/ir"
)

// ManualClock is a settable clock for tests.
//
// The registrar reads the clock once per call, so a test pins the exact
// timestamp every operation sees by calling Set before it.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now ir.Timestamp
}

// NewManualClock creates a clock reading start.
func NewManualClock(start ir.Timestamp) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() ir.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Moving backwards panics: the host clock is
// monotonic and tests must not rely on anything else.
func (c *ManualClock) Set(t ir.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		panic("ManualClock: time moved backwards")
	}
	c.now = t
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d ir.Timestamp) ir.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
