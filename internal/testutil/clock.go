package testutil

import "sync"

// Fixture dates start at 2023-01-01T00:00:00Z and advance one day per booking.
const (
	FixtureEpoch  = int64(1672531200)
	SecondsPerDay = int64(86400)
)

// DayClock hands out booking dates one day apart for fixtures and scenarios.
//
// Deterministic dates keep transaction uuids stable across runs, which the
// golden files depend on.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DayClock struct {
	mu    sync.Mutex
	start int64
	day   int64
}

// NewDayClock creates a clock whose first Next() returns start.
// A zero start means FixtureEpoch.
func NewDayClock(start int64) *DayClock {
	if start == 0 {
		start = FixtureEpoch
	}
	return &DayClock{start: start}
}

// Next returns the current date and advances the clock by one day.
func (c *DayClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	date := c.start + c.day*SecondsPerDay
	c.day++
	return date
}

// Current returns the date the next call to Next() will return.
func (c *DayClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start + c.day*SecondsPerDay
}

// Reset rewinds the clock to its start date.
func (c *DayClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = 0
}
