package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtValue(t *testing.T) {
	c := NewManualClock(42)
	assert.Equal(t, uint64(42), uint64(c.Now()))
}

func TestManualClock_SetAndAdvance(t *testing.T) {
	c := NewManualClock(0)

	c.Set(300)
	assert.Equal(t, uint64(300), uint64(c.Now()))

	assert.Equal(t, uint64(310), uint64(c.Advance(10)))
	assert.Equal(t, uint64(310), uint64(c.Now()), "Now must not advance the clock")
}

func TestManualClock_SetSameValue(t *testing.T) {
	c := NewManualClock(5)
	assert.NotPanics(t, func() { c.Set(5) })
}

func TestManualClock_BackwardsPanics(t *testing.T) {
	c := NewManualClock(10)
	assert.Panics(t, func() { c.Set(9) })
}
