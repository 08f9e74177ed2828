package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayClock_StartsAtEpoch(t *testing.T) {
	clock := NewDayClock(0)
	assert.Equal(t, FixtureEpoch, clock.Current())
	assert.Equal(t, FixtureEpoch, clock.Next())
	assert.Equal(t, FixtureEpoch+SecondsPerDay, clock.Current())
}

func TestDayClock_AdvancesByDay(t *testing.T) {
	clock := NewDayClock(100)

	assert.Equal(t, int64(100), clock.Next())
	assert.Equal(t, int64(100)+SecondsPerDay, clock.Next())
	assert.Equal(t, int64(100)+2*SecondsPerDay, clock.Next())
}

func TestDayClock_Reset(t *testing.T) {
	clock := NewDayClock(0)
	clock.Next()
	clock.Next()
	clock.Reset()
	assert.Equal(t, FixtureEpoch, clock.Next())
}

func TestDayClock_Concurrent(t *testing.T) {
	clock := NewDayClock(0)
	var wg sync.WaitGroup
	seen := sync.Map{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen.Store(clock.Next(), true)
		}()
	}
	wg.Wait()

	count := 0
	seen.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 50, count, "every date handed out exactly once")
}
